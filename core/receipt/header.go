package receipt

import "strings"

// FieldMapping maps a canonical field name to the column index it was
// found at in the uploaded sheet.
type FieldMapping map[string]int

// MatchHeaders resolves each canonical field to a column in rawHeaders.
// A field matches a column when the column equals it case-insensitively,
// or failing that, when the column contains it as a substring. The first
// (lowest-index) matching column wins; exact matches always beat
// substring matches. Returns the mapping and the list of fields that
// matched no column.
func MatchHeaders(rawHeaders []string) (FieldMapping, []string) {
	headers := make([]string, len(rawHeaders))
	for i, h := range rawHeaders {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	mapping := make(FieldMapping, len(RequiredFields))
	var missing []string
	for _, field := range RequiredFields {
		want := strings.ToLower(field)
		idx := -1
		for i, h := range headers {
			if h == want {
				idx = i
				break
			}
		}
		if idx < 0 {
			for i, h := range headers {
				if strings.Contains(h, want) {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			missing = append(missing, field)
			continue
		}
		mapping[field] = idx
	}
	return mapping, missing
}
