package receipt

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/risiti/core"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse extracts student records from an uploaded fee sheet. CSV and
// plain-text sheets are parsed in place; .xlsx sheets are read via their
// first worksheet. The sheet must carry every canonical field (see
// RequiredFields); otherwise a core.ValidationError naming each missing
// field is returned. Rows without a student name are dropped.
func Parse(fileName string, payload []byte) ([]StudentRecord, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		rows, err = parseExcel(payload)
	} else {
		rows, err = parseDelimited(payload)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, ErrNoDataRows
	}

	mapping, missing := MatchHeaders(rows[0])
	if len(missing) > 0 {
		fieldErrs := make([]core.FieldError, len(missing))
		for i, name := range missing {
			fieldErrs[i] = core.FieldError{Field: name, Error: "required column not found"}
		}
		return nil, core.NewValidationError(errors.New("missing required columns"), fieldErrs...)
	}

	emailIdx := findEmailColumn(rows[0])

	var recs []StudentRecord
	for _, row := range rows[1:] {
		rec := recordFromRow(row, mapping, emailIdx)
		if rec.Name == "" {
			continue
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, ErrNoDataRows
	}
	return recs, nil
}

func parseDelimited(payload []byte) ([][]string, error) {
	payload = bytes.TrimPrefix(payload, utf8BOM)
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, ErrEmptySheet
	}

	var lines []string
	for _, line := range strings.Split(string(payload), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, ErrEmptySheet
	}

	sep := detectDelimiter(lines[0])
	rows := make([][]string, len(lines))
	for i, line := range lines {
		fields := strings.Split(line, sep)
		for j, f := range fields {
			fields[j] = unquote(strings.TrimSpace(f))
		}
		rows[i] = fields
	}
	return rows, nil
}

// detectDelimiter picks the column separator from the header line:
// semicolon when present without commas, then tab, then comma.
func detectDelimiter(header string) string {
	if strings.Contains(header, ";") && !strings.Contains(header, ",") {
		return ";"
	}
	if strings.Contains(header, "\t") {
		return "\t"
	}
	return ","
}

// unquote strips one layer of surrounding single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func parseExcel(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheets[0])
	}

	clean := rows[:0]
	for _, row := range rows {
		for j, cell := range row {
			row[j] = strings.TrimSpace(cell)
		}
		if rowEmpty(row) {
			continue
		}
		clean = append(clean, row)
	}
	if len(clean) == 0 {
		return nil, ErrEmptySheet
	}
	return clean, nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// findEmailColumn resolves the email column independently of the field
// mapping: the first header containing "email" or "mail",
// case-insensitive. Returns -1 when there is none.
func findEmailColumn(headers []string) int {
	for i, h := range headers {
		if strings.Contains(strings.ToLower(h), "mail") {
			return i
		}
	}
	return -1
}

func recordFromRow(row []string, mapping FieldMapping, emailIdx int) StudentRecord {
	value := func(field string) string {
		idx, ok := mapping[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	var email string
	if emailIdx >= 0 && emailIdx < len(row) {
		email = strings.TrimSpace(row[emailIdx])
	}
	return StudentRecord{
		Name:         value(FieldName),
		Date:         value(FieldDate),
		Category:     value(FieldCategory),
		InWords:      value(FieldInWords),
		Course:       value(FieldCourse),
		TuitionFee:   value(FieldTuitionFee),
		DevFee:       value(FieldDevFee),
		ExamFee:      value(FieldExamFee),
		EnrollFee:    value(FieldEnrollFee),
		OtherFee:     value(FieldOtherFee),
		Total:        value(FieldTotal),
		BankName:     value(FieldBankName),
		PayOrderNo:   value(FieldPayOrderNo),
		Email:        email,
		EnrollmentID: value(FieldEnrollmentID),
	}
}
