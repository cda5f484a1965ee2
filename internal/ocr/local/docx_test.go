package local

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`,
		"word/document.xml": `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestDetectTextOnDocx(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:r><w:t>RECIBO DE NOMINA</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>NETO</w:t></w:r><w:r><w:tab/><w:t>25,000.00</w:t></w:r></w:p>`)

	page, err := New(mapOpener{}).DetectText(context.Background(), data)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(page.Lines) != 2 || page.Lines[0] != "RECIBO DE NOMINA" || page.Lines[1] != "NETO 25,000.00" {
		t.Fatalf("unexpected lines %q", page.Lines)
	}
}

func TestParagraphsKeepsTextOnBrokenXML(t *testing.T) {
	got := paragraphs(`<w:p><w:t>uno</w:t></w:p><w:p><w:t>dos`)
	if got != "uno\ndos" {
		t.Fatalf("unexpected text %q", got)
	}
}
