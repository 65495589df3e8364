// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package annotate writes reviewed copies of input documents with inline
// bracketed comments at each flagged block.
//
// The annotated copy is the original DOCX archive with extra runs appended
// inside word/document.xml; every other archive part is copied through
// unchanged, so formatting, tables, and metadata survive the round trip.
package annotate

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pdiddy/review-engine/pkg/types"
)

const documentXMLPath = "word/document.xml"

// Annotate writes a copy of the DOCX at srcPath to outPath with a
// "[FLAG: severity — message]" comment run appended to each flagged
// paragraph. Findings are grouped by block index; block indices must come
// from the same loader pass that produced them.
func Annotate(srcPath, outPath string, findings []types.Finding) error {
	reader, err := zip.OpenReader(srcPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", srcPath, err)
	}
	defer reader.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	byBlock := groupByBlock(findings)

	for _, file := range reader.File {
		data, err := readZipFile(file)
		if err != nil {
			return fmt.Errorf("reading %s from %s: %w", file.Name, srcPath, err)
		}

		if file.Name == documentXMLPath && len(byBlock) > 0 {
			data = injectComments(data, byBlock)
		}

		w, err := writer.CreateHeader(&zip.FileHeader{
			Name:   file.Name,
			Method: file.Method,
		})
		if err != nil {
			return fmt.Errorf("writing %s to %s: %w", file.Name, outPath, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing %s to %s: %w", file.Name, outPath, err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", outPath, err)
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// groupByBlock collects comment texts per block index, preserving the
// report order of the findings within each block.
func groupByBlock(findings []types.Finding) map[int][]string {
	byBlock := make(map[int][]string)
	for _, f := range findings {
		byBlock[f.BlockIndex] = append(byBlock[f.BlockIndex], commentText(f))
	}
	return byBlock
}

// commentText formats one finding as its inline comment.
func commentText(f types.Finding) string {
	return fmt.Sprintf("[FLAG: %s — %s]", f.Severity, f.Message)
}

// injectComments walks the document XML and appends an italic comment run
// before the closing tag of each flagged paragraph. Paragraph ordinals
// match the loader: every <w:p> element counts, including table-cell
// paragraphs and empty self-closing ones. Self-closing paragraphs hold no
// text, are never flagged, and are skipped.
func injectComments(data []byte, byBlock map[int][]string) []byte {
	indices := make([]int, 0, len(byBlock))
	for idx := range byBlock {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	text := string(data)
	var out strings.Builder
	out.Grow(len(text) + 256*len(indices))

	paraIndex := -1
	pos := 0
	for pos < len(text) {
		start := indexParagraphStart(text, pos)
		if start < 0 {
			out.WriteString(text[pos:])
			break
		}
		paraIndex++

		comments, flagged := byBlock[paraIndex]
		if !flagged {
			out.WriteString(text[pos : start+1])
			pos = start + 1
			continue
		}

		end := strings.Index(text[start:], "</w:p>")
		selfClose := paragraphSelfCloses(text[start:])
		if end < 0 || selfClose {
			out.WriteString(text[pos : start+1])
			pos = start + 1
			continue
		}
		end += start

		out.WriteString(text[pos:end])
		for _, comment := range comments {
			out.WriteString(`<w:r><w:rPr><w:i/></w:rPr><w:t xml:space="preserve">  `)
			out.WriteString(escapeXML(comment))
			out.WriteString(`</w:t></w:r>`)
		}
		pos = end
	}

	return []byte(out.String())
}

// indexParagraphStart finds the next "<w:p" tag at or after pos that really
// opens a paragraph ("<w:p>", "<w:p ", "<w:p/"), not a prefix of another
// element such as <w:pPr>.
func indexParagraphStart(text string, pos int) int {
	for {
		i := strings.Index(text[pos:], "<w:p")
		if i < 0 {
			return -1
		}
		i += pos
		next := i + len("<w:p")
		if next < len(text) {
			switch text[next] {
			case '>', ' ', '/':
				return i
			}
		}
		pos = i + 1
	}
}

// paragraphSelfCloses reports whether the paragraph tag starting at the
// beginning of s closes itself ("<w:p/>" or "<w:p ... />").
func paragraphSelfCloses(s string) bool {
	end := strings.IndexByte(s, '>')
	if end < 0 {
		return false
	}
	return strings.HasSuffix(s[:end+1], "/>")
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
