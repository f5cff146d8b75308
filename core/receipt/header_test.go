package receipt

import (
	"reflect"
	"testing"
)

func TestMatchHeaders(t *testing.T) {
	canonical := []string{
		"NAME OF THE STUDENT", "DATE", "CAT", "IN WORDS", "YEAR & COURSE",
		"TUITION FEE", "DEV. FEE", "EXAM FEE", "ENROLLMENT FEE", "OTHER FEE",
		"TOTAL", "BANK NAME", "PAY ORDER NO.", "EMAIL", "STUDENT_ENROLLMENT_ID",
	}

	t.Run("exact headers all match", func(t *testing.T) {
		mapping, missing := MatchHeaders(canonical)
		if len(missing) != 0 {
			t.Fatalf("MatchHeaders() missing = %v, want none", missing)
		}
		for i, field := range RequiredFields {
			if mapping[field] != i {
				t.Errorf("mapping[%q] = %d, want %d", field, mapping[field], i)
			}
		}
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		headers := make([]string, len(canonical))
		for i, h := range canonical {
			headers[i] = "  " + toggleCase(h) + " "
		}
		_, missing := MatchHeaders(headers)
		if len(missing) != 0 {
			t.Errorf("MatchHeaders() missing = %v, want none", missing)
		}
	})

	t.Run("noisy headers match by substring", func(t *testing.T) {
		headers := append([]string{}, canonical...)
		headers[0] = "Full Name of the Student (as enrolled)"
		headers[5] = "Sem Tuition Fee (INR)"
		mapping, missing := MatchHeaders(headers)
		if len(missing) != 0 {
			t.Fatalf("MatchHeaders() missing = %v, want none", missing)
		}
		if mapping[FieldName] != 0 {
			t.Errorf("mapping[FieldName] = %d, want 0", mapping[FieldName])
		}
		if mapping[FieldTuitionFee] != 5 {
			t.Errorf("mapping[FieldTuitionFee] = %d, want 5", mapping[FieldTuitionFee])
		}
	})

	t.Run("exact match beats earlier substring match", func(t *testing.T) {
		mapping, missing := MatchHeaders([]string{"TOTAL OTHER FEE", "OTHER FEE", "TOTAL"})
		if len(missing) == 0 {
			t.Fatal("expected some missing fields in a 3-column sheet")
		}
		if mapping[FieldOtherFee] != 1 {
			t.Errorf("mapping[FieldOtherFee] = %d, want 1", mapping[FieldOtherFee])
		}
		if mapping[FieldTotal] != 2 {
			t.Errorf("mapping[FieldTotal] = %d, want 2", mapping[FieldTotal])
		}
	})

	t.Run("missing fields are reported in canonical order", func(t *testing.T) {
		headers := append([]string{}, canonical...)
		headers[13] = "PHONE" // EMAIL gone
		headers[1] = "WHEN"   // DATE gone
		_, missing := MatchHeaders(headers)
		if want := []string{FieldDate, FieldEmail}; !reflect.DeepEqual(missing, want) {
			t.Errorf("MatchHeaders() missing = %v, want %v", missing, want)
		}
	})
}

func toggleCase(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch {
		case 'a' <= r && r <= 'z':
			out[i] = r - 'a' + 'A'
		case 'A' <= r && r <= 'Z':
			out[i] = r - 'A' + 'a'
		}
	}
	return string(out)
}
