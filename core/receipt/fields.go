package receipt

// Canonical header names a student fee sheet must carry. Matching against
// uploaded headers is case-insensitive and tolerates surrounding noise,
// see MatchHeaders.
const (
	FieldName         = "NAME OF THE STUDENT"
	FieldDate         = "DATE"
	FieldCategory     = "CAT"
	FieldInWords      = "IN WORDS"
	FieldCourse       = "YEAR & COURSE"
	FieldTuitionFee   = "TUITION FEE"
	FieldDevFee       = "DEV. FEE"
	FieldExamFee      = "EXAM FEE"
	FieldEnrollFee    = "ENROLLMENT FEE"
	FieldOtherFee     = "OTHER FEE"
	FieldTotal        = "TOTAL"
	FieldBankName     = "BANK NAME"
	FieldPayOrderNo   = "PAY ORDER NO."
	FieldEmail        = "EMAIL"
	FieldEnrollmentID = "STUDENT_ENROLLMENT_ID"
)

// RequiredFields lists every canonical field, in sheet order. All of them
// must be present in an uploaded sheet for it to be accepted.
var RequiredFields = []string{
	FieldName,
	FieldDate,
	FieldCategory,
	FieldInWords,
	FieldCourse,
	FieldTuitionFee,
	FieldDevFee,
	FieldExamFee,
	FieldEnrollFee,
	FieldOtherFee,
	FieldTotal,
	FieldBankName,
	FieldPayOrderNo,
	FieldEmail,
	FieldEnrollmentID,
}
