// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adjudicate

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/review-engine/pkg/types"
)

// reviewPromptTmpl is the prompt sent to the model for each suspicious
// block. The retrieved reference passages ground the verdict; the model is
// told to answer with nothing but the JSON array so parsing stays strict.
var reviewPromptTmpl = template.Must(template.New("review").Parse(`You are a legal assistant specialized in Abu Dhabi Global Market (ADGM) company regulations.
Review the following clause from a {{.DocType}}:
---CLAUSE---
{{.Excerpt}}
---END CLAUSE---
{{if .References}}
Relevant ADGM references:
{{range .References}}{{.Chunk.Label}}

{{end}}{{end}}
Identify whether the clause violates ADGM practice or contains red flags
(wrong jurisdiction, missing clause, ambiguous discretionary language).
For each issue produce a short suggested fix, citing references as [source: filename].

Respond with a JSON array of objects with keys "issue", "severity", and
"suggestion". Severity must be one of "critical", "warning", or "info".
Respond with an empty array if the clause is acceptable. Do not include any
text outside the JSON array.
`))

// renderPrompt fills the review template for one block.
func renderPrompt(docType, excerpt string, references []types.RetrievalMatch) (string, error) {
	var buf bytes.Buffer
	err := reviewPromptTmpl.Execute(&buf, struct {
		DocType    string
		Excerpt    string
		References []types.RetrievalMatch
	}{
		DocType:    docType,
		Excerpt:    excerpt,
		References: references,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
