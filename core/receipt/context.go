package receipt

import "strconv"

// BuildContext turns a parsed record into the placeholder values fed to
// the document renderer. seq is the record's 1-based position in the
// batch and backs receipt_no when the sheet has no pay order number.
// Fee columns left blank in the sheet render as "0".
func BuildContext(rec StudentRecord, seq int) map[string]string {
	receiptNo := rec.PayOrderNo
	if receiptNo == "" {
		receiptNo = strconv.Itoa(seq)
	}
	return map[string]string{
		"receipt_no":     receiptNo,
		"date":           rec.Date,
		"caste":          rec.Category,
		"name":           rec.Name,
		"In_words":       rec.InWords,
		"engineering":    rec.Course,
		"Tuition_Fee":    fee(rec.TuitionFee),
		"Development":    fee(rec.DevFee),
		"Board_Exam":     fee(rec.ExamFee),
		"Enrollment_Fee": fee(rec.EnrollFee),
		"Others_fee":     fee(rec.OtherFee),
		"TOTAL":          fee(rec.Total),
		"Bank_Name":      rec.BankName,
		"Pay_Order":      rec.PayOrderNo,
		"email":          rec.Email,
		"enrollment_no":  rec.EnrollmentID,
	}
}

func fee(v string) string {
	if v == "" {
		return "0"
	}
	return v
}
