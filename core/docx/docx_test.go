package docx

import (
	"archive/zip"
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func buildDoc(t *testing.T, parts map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
		if _, err = w.Write([]byte(content)); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	return buf.Bytes()
}

func readTestPart(t *testing.T, doc []byte, name string) string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", name, err)
		}
		defer rc.Close()
		buf := new(bytes.Buffer)
		if _, err = buf.ReadFrom(rc); err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		return buf.String()
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()

	t.Run("substitutes body, headers and footers", func(t *testing.T) {
		tpl := buildDoc(t, map[string]string{
			"word/document.xml": `<w:t>Receipt for {{name}}, total {{TOTAL}}</w:t>`,
			"word/header1.xml":  `<w:t>{{receipt_no}}</w:t>`,
			"word/footer1.xml":  `<w:t>{{Bank_Name}}</w:t>`,
			"word/styles.xml":   `{{name}} must survive untouched`,
		})

		doc, unresolved, err := r.Render(tpl, map[string]string{
			"name":       "Asha Rao",
			"TOTAL":      "1500",
			"receipt_no": "42",
			"Bank_Name":  "State Bank",
		})
		if err != nil {
			t.Fatalf("Render() failed: %v", err)
		}
		if len(unresolved) != 0 {
			t.Errorf("Render() unresolved = %v, want none", unresolved)
		}

		if got := readTestPart(t, doc, "word/document.xml"); !strings.Contains(got, "Receipt for Asha Rao, total 1500") {
			t.Errorf("document.xml = %q", got)
		}
		if got := readTestPart(t, doc, "word/header1.xml"); !strings.Contains(got, "42") {
			t.Errorf("header1.xml = %q", got)
		}
		if got := readTestPart(t, doc, "word/footer1.xml"); !strings.Contains(got, "State Bank") {
			t.Errorf("footer1.xml = %q", got)
		}
		// non-text parts stay byte-for-byte
		if got := readTestPart(t, doc, "word/styles.xml"); got != "{{name}} must survive untouched" {
			t.Errorf("styles.xml = %q", got)
		}
	})

	t.Run("key normalization ignores case and separators", func(t *testing.T) {
		tpl := buildDoc(t, map[string]string{
			"word/document.xml": `<w:t>{{Tuition_Fee}} {{IN WORDS}}</w:t>`,
		})
		doc, unresolved, err := r.Render(tpl, map[string]string{
			"tuition fee": "5000",
			"In_words":    "five thousand",
		})
		if err != nil {
			t.Fatalf("Render() failed: %v", err)
		}
		if len(unresolved) != 0 {
			t.Errorf("Render() unresolved = %v, want none", unresolved)
		}
		if got := readTestPart(t, doc, "word/document.xml"); !strings.Contains(got, "5000 five thousand") {
			t.Errorf("document.xml = %q", got)
		}
	})

	t.Run("unresolved placeholders render empty and are reported", func(t *testing.T) {
		tpl := buildDoc(t, map[string]string{
			"word/document.xml": `<w:t>{{name}} {{missing}} {{missing}} {{gone}}</w:t>`,
		})
		doc, unresolved, err := r.Render(tpl, map[string]string{"name": "Asha"})
		if err != nil {
			t.Fatalf("Render() failed: %v", err)
		}
		if want := []string{"gone", "missing"}; !reflect.DeepEqual(unresolved, want) {
			t.Errorf("Render() unresolved = %v, want %v", unresolved, want)
		}
		got := readTestPart(t, doc, "word/document.xml")
		if strings.Contains(got, "{{") {
			t.Errorf("document.xml = %q, no markers may remain", got)
		}
		if !strings.Contains(got, "<w:t>Asha   </w:t>") {
			t.Errorf("document.xml = %q, unresolved placeholders must render empty", got)
		}
	})

	t.Run("values are XML escaped", func(t *testing.T) {
		tpl := buildDoc(t, map[string]string{
			"word/document.xml": `<w:t>{{name}}</w:t>`,
		})
		doc, _, err := r.Render(tpl, map[string]string{"name": "Tom & Jerry <LLC>"})
		if err != nil {
			t.Fatalf("Render() failed: %v", err)
		}
		if got := readTestPart(t, doc, "word/document.xml"); !strings.Contains(got, "Tom &amp; Jerry &lt;LLC&gt;") {
			t.Errorf("document.xml = %q", got)
		}
	})

	t.Run("missing document part", func(t *testing.T) {
		tpl := buildDoc(t, map[string]string{"word/header1.xml": `<w:t>{{x}}</w:t>`})
		if _, _, err := r.Render(tpl, nil); err != ErrNoDocument {
			t.Errorf("Render() error = %v, want ErrNoDocument", err)
		}
	})

	t.Run("corrupt archive", func(t *testing.T) {
		if _, _, err := r.Render([]byte("not a zip"), nil); err == nil {
			t.Error("Render() expected an error")
		}
	})
}
