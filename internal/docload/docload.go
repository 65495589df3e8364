// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docload extracts normalized text blocks from word-processor files.
//
// A DOCX container is a ZIP archive whose body lives in word/document.xml.
// The loader walks that XML as a token stream so that paragraphs and table
// cells come out in true document order: every <w:p> element, including those
// nested in table cells, is assigned one ordinal index. Annotations written
// later target the same ordinals.
package docload

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pdiddy/review-engine/pkg/types"
)

// ErrUnsupportedFormat marks files whose extension or content is not a
// recognized word-processor format.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrCorruptFile marks containers that cannot be parsed.
var ErrCorruptFile = errors.New("corrupt document file")

// documentXMLPath is the body part inside the DOCX archive.
const documentXMLPath = "word/document.xml"

// Load reads a DOCX file into a normalized Document. The returned document
// carries TypeUnknown until classified. Empty paragraphs are dropped but
// still consume an index, so block indices map back to the source file.
func Load(path string) (*types.Document, error) {
	if !strings.EqualFold(filepath.Ext(path), ".docx") {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%s: opening container: %w", filepath.Base(path), ErrCorruptFile)
	}
	defer reader.Close()

	var body io.ReadCloser
	for _, f := range reader.File {
		if f.Name == documentXMLPath {
			body, err = f.Open()
			if err != nil {
				return nil, fmt.Errorf("%s: opening %s: %w", filepath.Base(path), documentXMLPath, ErrCorruptFile)
			}
			break
		}
	}
	if body == nil {
		// A ZIP without a word-processor body is not a DOCX at all.
		return nil, fmt.Errorf("%s: missing %s: %w", filepath.Base(path), documentXMLPath, ErrUnsupportedFormat)
	}
	defer body.Close()

	blocks, err := parseBody(body)
	if err != nil {
		return nil, fmt.Errorf("%s: parsing body: %w", filepath.Base(path), ErrCorruptFile)
	}

	return &types.Document{
		Name:   filepath.Base(path),
		Path:   path,
		Blocks: blocks,
		Type:   types.TypeUnknown,
	}, nil
}

// parseBody walks the document XML token stream and collects one block per
// non-empty <w:p>. Table-cell paragraphs (inside <w:tc>) are marked as such.
func parseBody(r io.Reader) ([]types.Block, error) {
	dec := xml.NewDecoder(r)

	var (
		blocks    []types.Block
		paraIndex = -1
		cellDepth = 0
		inPara    = false
		inText    = false
		text      strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tc":
				cellDepth++
			case "p":
				paraIndex++
				inPara = true
				text.Reset()
			case "t":
				inText = inPara
			case "tab":
				if inPara {
					text.WriteByte('\t')
				}
			case "br":
				if inPara {
					text.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tc":
				if cellDepth > 0 {
					cellDepth--
				}
			case "t":
				inText = false
			case "p":
				if inPara {
					inPara = false
					trimmed := strings.TrimSpace(text.String())
					if trimmed != "" {
						kind := types.BlockParagraph
						if cellDepth > 0 {
							kind = types.BlockTableCell
						}
						blocks = append(blocks, types.Block{
							Index: paraIndex,
							Kind:  kind,
							Text:  trimmed,
						})
					}
				}
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}

	return blocks, nil
}
