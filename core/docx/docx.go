// Package docx fills {{placeholder}} tags in Word documents. Only the
// XML parts that can carry visible text (the document body, headers and
// footers) are rewritten; every other archive entry is copied untouched.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoDocument is returned when the template is a valid archive but
// carries no word/document.xml part.
var ErrNoDocument = errors.New("not a Word document: word/document.xml missing")

var (
	placeholderRegex = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
	nonAlphaNumRegex = regexp.MustCompile(`[^a-z0-9]+`)
)

type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

// Render substitutes data into every placeholder of the template and
// returns the rebuilt document. Placeholder names and data keys are
// compared after normalization (lowercased, non-alphanumerics stripped),
// so {{Tuition_Fee}} and "tuition fee" meet in the middle. Placeholders
// with no matching key render as empty text and are reported in the
// second return value; an unresolved placeholder is not an error.
func (r *Renderer) Render(tpl []byte, data map[string]string) ([]byte, []string, error) {
	zr, err := zip.NewReader(bytes.NewReader(tpl), int64(len(tpl)))
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening template")
	}

	lookup := make(map[string]string, len(data))
	for k, v := range data {
		lookup[normalizeKey(k)] = v
	}

	var (
		buf        bytes.Buffer
		hasDoc     bool
		unresolved = make(map[string]struct{})
	)
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			hasDoc = true
		}
		if !isTextPart(f.Name) {
			if err = zw.Copy(f); err != nil {
				return nil, nil, errors.Wrapf(err, "copying %s", f.Name)
			}
			continue
		}

		content, err := readPart(f)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading %s", f.Name)
		}
		content = placeholderRegex.ReplaceAllFunc(content, func(m []byte) []byte {
			name := string(placeholderRegex.FindSubmatch(m)[1])
			if v, ok := lookup[normalizeKey(name)]; ok {
				return []byte(escapeXML(v))
			}
			unresolved[strings.TrimSpace(name)] = struct{}{}
			return nil
		})

		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate})
		if err != nil {
			return nil, nil, errors.Wrapf(err, "writing %s", f.Name)
		}
		if _, err = w.Write(content); err != nil {
			return nil, nil, errors.Wrapf(err, "writing %s", f.Name)
		}
	}
	if !hasDoc {
		return nil, nil, ErrNoDocument
	}
	if err = zw.Close(); err != nil {
		return nil, nil, errors.Wrap(err, "closing document")
	}

	names := make([]string, 0, len(unresolved))
	for name := range unresolved {
		names = append(names, name)
	}
	sort.Strings(names)
	return buf.Bytes(), names, nil
}

func isTextPart(name string) bool {
	if name == "word/document.xml" {
		return true
	}
	if !strings.HasPrefix(name, "word/") || !strings.HasSuffix(name, ".xml") {
		return false
	}
	base := strings.TrimPrefix(name, "word/")
	return strings.HasPrefix(base, "header") || strings.HasPrefix(base, "footer")
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer rc.Close()
	return io.ReadAll(rc)
}

// normalizeKey lowers the key and strips everything outside [a-z0-9].
func normalizeKey(k string) string {
	return nonAlphaNumRegex.ReplaceAllString(strings.ToLower(k), "")
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
