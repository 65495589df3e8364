package annotate

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/review-engine/pkg/types"
)

const docxHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const docxFooter = `</w:body></w:document>`

func para(text string) string {
	return `<w:p><w:pPr><w:jc w:val="left"/></w:pPr><w:r><w:t>` + text + `</w:t></w:r></w:p>`
}

func writeDocx(t *testing.T, parts map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func readPart(t *testing.T, path, name string) string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer r.Close()
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}
	t.Fatalf("part %s not found in %s", name, path)
	return ""
}

func TestAnnotateInsertsCommentRun(t *testing.T) {
	doc := docxHeader + para("First clause.") + para("The directors may issue shares.") + docxFooter
	src := writeDocx(t, map[string]string{
		"word/document.xml": doc,
		"word/styles.xml":   "<w:styles/>",
	})
	out := filepath.Join(t.TempDir(), "reviewed.docx")

	findings := []types.Finding{{
		Document:   "source.docx",
		BlockIndex: 1,
		Category:   "ambiguous-may",
		Severity:   types.SeverityWarning,
		Message:    "Ambiguous language: contains 'may'",
	}}

	if err := Annotate(src, out, findings); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	body := readPart(t, out, "word/document.xml")
	comment := commentText(findings[0])
	if !strings.Contains(body, escapeXML(comment)) {
		t.Fatalf("annotated body does not contain %q:\n%s", comment, body)
	}

	// The comment run sits inside the flagged paragraph, after its text.
	clause := strings.Index(body, "The directors may issue shares.")
	run := strings.Index(body, "<w:i/>")
	closing := strings.Index(body[clause:], "</w:p>") + clause
	if run < clause || run > closing {
		t.Errorf("comment run at %d is outside flagged paragraph [%d, %d]", run, clause, closing)
	}

	// The clean paragraph is untouched.
	if got := strings.Count(body, "<w:i/>"); got != 1 {
		t.Errorf("found %d comment runs, want 1", got)
	}

	// Other archive parts are copied through unchanged.
	if got := readPart(t, out, "word/styles.xml"); got != "<w:styles/>" {
		t.Errorf("styles.xml = %q, want copied through unchanged", got)
	}
}

func TestAnnotateMultipleFindingsSameBlock(t *testing.T) {
	doc := docxHeader + para("The board may refer disputes to the UAE Federal Courts.") + docxFooter
	src := writeDocx(t, map[string]string{"word/document.xml": doc})
	out := filepath.Join(t.TempDir(), "reviewed.docx")

	findings := []types.Finding{
		{BlockIndex: 0, Severity: types.SeverityCritical, Message: "References UAE Federal Courts instead of ADGM"},
		{BlockIndex: 0, Severity: types.SeverityWarning, Message: "Ambiguous language: contains 'may'"},
	}

	if err := Annotate(src, out, findings); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	body := readPart(t, out, "word/document.xml")
	critical := strings.Index(body, "[FLAG: critical")
	warning := strings.Index(body, "[FLAG: warning")
	if critical < 0 || warning < 0 {
		t.Fatalf("missing comment runs in body:\n%s", body)
	}
	if critical > warning {
		t.Error("comments not in report order within the paragraph")
	}
}

func TestAnnotateTableCellParagraph(t *testing.T) {
	doc := docxHeader +
		para("Intro paragraph.") +
		`<w:tbl><w:tr><w:tc>` + para("Cell with governing law text.") + `</w:tc></w:tr></w:tbl>` +
		docxFooter
	src := writeDocx(t, map[string]string{"word/document.xml": doc})
	out := filepath.Join(t.TempDir(), "reviewed.docx")

	findings := []types.Finding{{
		BlockIndex: 1,
		Severity:   types.SeverityWarning,
		Message:    "Governing-law clause does not name a jurisdiction",
	}}

	if err := Annotate(src, out, findings); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	body := readPart(t, out, "word/document.xml")
	cell := strings.Index(body, "Cell with governing law text.")
	run := strings.Index(body, "[FLAG: warning")
	cellEnd := strings.Index(body[cell:], "</w:p>") + cell
	if run < cell || run > cellEnd {
		t.Errorf("comment at %d not inside the table-cell paragraph [%d, %d]", run, cell, cellEnd)
	}
}

func TestAnnotateSkipsSelfClosingParagraphs(t *testing.T) {
	// An empty self-closing paragraph still advances the ordinal, so the
	// finding on index 1 lands on the second real paragraph text.
	doc := docxHeader + `<w:p/>` + para("Flagged text.") + docxFooter
	src := writeDocx(t, map[string]string{"word/document.xml": doc})
	out := filepath.Join(t.TempDir(), "reviewed.docx")

	findings := []types.Finding{{
		BlockIndex: 1,
		Severity:   types.SeverityInfo,
		Message:    "note",
	}}

	if err := Annotate(src, out, findings); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	body := readPart(t, out, "word/document.xml")
	flagged := strings.Index(body, "Flagged text.")
	run := strings.Index(body, "[FLAG: info")
	if run < flagged {
		t.Errorf("comment at %d precedes the flagged paragraph at %d:\n%s", run, flagged, body)
	}
}

func TestAnnotateEscapesMessage(t *testing.T) {
	doc := docxHeader + para("Clause text.") + docxFooter
	src := writeDocx(t, map[string]string{"word/document.xml": doc})
	out := filepath.Join(t.TempDir(), "reviewed.docx")

	findings := []types.Finding{{
		BlockIndex: 0,
		Severity:   types.SeverityWarning,
		Message:    `Uses "<may>" & friends`,
	}}

	if err := Annotate(src, out, findings); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	body := readPart(t, out, "word/document.xml")
	if strings.Contains(body, "<may>") {
		t.Error("raw angle brackets leaked into the document XML")
	}
	if !strings.Contains(body, "&lt;may&gt;") || !strings.Contains(body, "&amp; friends") {
		t.Errorf("message not escaped in body:\n%s", body)
	}
}

func TestAnnotateNoFindingsCopiesThrough(t *testing.T) {
	doc := docxHeader + para("Untouched clause.") + docxFooter
	src := writeDocx(t, map[string]string{"word/document.xml": doc})
	out := filepath.Join(t.TempDir(), "reviewed.docx")

	if err := Annotate(src, out, nil); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if got := readPart(t, out, "word/document.xml"); got != doc {
		t.Errorf("document.xml changed with no findings:\ngot  %q\nwant %q", got, doc)
	}
}
