package receipt

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/risiti/core"
)

var sheetHeader = strings.Join(RequiredFields, ",")

func TestParse_csv(t *testing.T) {
	t.Run("comma separated", func(t *testing.T) {
		payload := sheetHeader + "\n" +
			"Asha Rao,12/05/2024,OPEN,fifteen thousand,SE Computer,12000,1000,800,700,500,15000,State Bank,PO-778,asha@example.com,EN-001\n"
		recs, err := Parse("fees.csv", []byte(payload))
		if err != nil {
			t.Fatalf("Parse() failed: %v", err)
		}
		if len(recs) != 1 {
			t.Fatalf("len(recs) = %d, want 1", len(recs))
		}
		rec := recs[0]
		if rec.Name != "Asha Rao" || rec.TuitionFee != "12000" || rec.Email != "asha@example.com" || rec.EnrollmentID != "EN-001" {
			t.Errorf("unexpected record: %+v", rec)
		}
	})

	t.Run("semicolon separated", func(t *testing.T) {
		payload := strings.Join(RequiredFields, ";") + "\n" +
			"Asha Rao;12/05/2024;OPEN;fifteen thousand;SE Computer;12000;1000;800;700;500;15000;State Bank;PO-778;asha@example.com;EN-001\n"
		recs, err := Parse("fees.csv", []byte(payload))
		if err != nil {
			t.Fatalf("Parse() failed: %v", err)
		}
		if recs[0].BankName != "State Bank" {
			t.Errorf("BankName = %q", recs[0].BankName)
		}
	})

	t.Run("tab separated", func(t *testing.T) {
		payload := strings.Join(RequiredFields, "\t") + "\n" +
			"Asha Rao\t12/05/2024\tOPEN\tfifteen thousand\tSE Computer\t12000\t1000\t800\t700\t500\t15000\tState Bank\tPO-778\tasha@example.com\tEN-001\n"
		recs, err := Parse("fees.tsv", []byte(payload))
		if err != nil {
			t.Fatalf("Parse() failed: %v", err)
		}
		if recs[0].PayOrderNo != "PO-778" {
			t.Errorf("PayOrderNo = %q", recs[0].PayOrderNo)
		}
	})

	t.Run("quoted fields and BOM", func(t *testing.T) {
		payload := "\xEF\xBB\xBF" + sheetHeader + "\r\n" +
			`"Asha Rao",'12/05/2024',OPEN,"fifteen thousand",SE Computer,12000,1000,800,700,500,15000,"State Bank",PO-778,asha@example.com,EN-001` + "\r\n"
		recs, err := Parse("fees.csv", []byte(payload))
		if err != nil {
			t.Fatalf("Parse() failed: %v", err)
		}
		rec := recs[0]
		if rec.Name != "Asha Rao" {
			t.Errorf("Name = %q, quotes should be stripped", rec.Name)
		}
		if rec.Date != "12/05/2024" {
			t.Errorf("Date = %q, single quotes should be stripped", rec.Date)
		}
	})

	t.Run("short rows default to empty values", func(t *testing.T) {
		payload := sheetHeader + "\n" + "Asha Rao,12/05/2024\n"
		recs, err := Parse("fees.csv", []byte(payload))
		if err != nil {
			t.Fatalf("Parse() failed: %v", err)
		}
		if recs[0].Total != "" || recs[0].Email != "" {
			t.Errorf("short row should leave trailing fields empty: %+v", recs[0])
		}
	})

	t.Run("rows without a student name are dropped", func(t *testing.T) {
		payload := sheetHeader + "\n" +
			",12/05/2024,OPEN,,,,,,,,,,,,\n" +
			"Asha Rao,12/05/2024,OPEN,,,,,,,,,,,,\n"
		recs, err := Parse("fees.csv", []byte(payload))
		if err != nil {
			t.Fatalf("Parse() failed: %v", err)
		}
		if len(recs) != 1 {
			t.Fatalf("len(recs) = %d, want 1", len(recs))
		}
		if recs[0].Name != "Asha Rao" {
			t.Errorf("Name = %q", recs[0].Name)
		}
	})

	t.Run("header only", func(t *testing.T) {
		if _, err := Parse("fees.csv", []byte(sheetHeader+"\n")); errors.Cause(err) != ErrNoDataRows {
			t.Errorf("Parse() error = %v, want ErrNoDataRows", err)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		if _, err := Parse("fees.csv", []byte("  \n \n")); errors.Cause(err) != ErrEmptySheet {
			t.Errorf("Parse() error = %v, want ErrEmptySheet", err)
		}
	})

	t.Run("missing columns yield a validation error", func(t *testing.T) {
		headers := append([]string{}, RequiredFields...)
		headers[13] = "PHONE" // EMAIL gone
		payload := strings.Join(headers, ",") + "\nAsha Rao,,,,,,,,,,,,,,\n"

		_, err := Parse("fees.csv", []byte(payload))
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		if !ok {
			t.Fatalf("Parse() error = %v, want *core.ValidationError", err)
		}
		if len(vErr.Fields) != 1 || vErr.Fields[0].Field != FieldEmail {
			t.Errorf("ValidationError.Fields = %+v, want one error on %q", vErr.Fields, FieldEmail)
		}
	})
}

func TestParse_xlsx(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, h := range RequiredFields {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	row := []string{"Asha Rao", "12/05/2024", "OPEN", "fifteen thousand", "SE Computer",
		"12000", "1000", "800", "700", "500", "15000", "State Bank", "PO-778", "asha@example.com", "EN-001"}
	for i, v := range row {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheet, cell, v)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("building workbook: %v", err)
	}

	recs, err := Parse("fees.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}
	if recs[0].Name != "Asha Rao" || recs[0].Total != "15000" {
		t.Errorf("unexpected record: %+v", recs[0])
	}

	t.Run("corrupt workbook", func(t *testing.T) {
		if _, err := Parse("fees.xlsx", []byte("not a workbook")); err == nil {
			t.Error("Parse() expected an error")
		}
	})
}
