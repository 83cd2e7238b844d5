// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/litreview/pkg/types"
)

// systemInstruction is the shared system prompt for every completion.
// The same instruction is sent to whichever provider handles the call.
const systemInstruction = "You are a medical research assistant writing an evidence-based literature review. Be precise, cite only the numbered sources you are given, and never invent citations."

// planPromptTmpl asks for the section structure as a JSON array.
var planPromptTmpl = template.Must(template.New("plan").Parse(`Plan the body of a literature review on the following topic.

Topic: {{.Topic}}
{{if .Context}}Clinical context: {{.Context}}
{{end}}
Propose exactly {{.N}} section headings that together cover the topic: background, diagnosis or assessment where applicable, treatment or intervention evidence, and open questions. Headings must be short noun phrases without numbering.

Respond with a JSON array of {{.N}} strings and nothing else.

Example response:
["Epidemiology and Risk Factors", "Diagnostic Criteria", "First-Line Treatment", "Long-Term Management", "Future Directions"]
`))

// analysisPromptTmpl produces the per-paper digest.
var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`Summarize the following paper for a literature review section titled "{{.Heading}}" on the topic "{{.Topic}}".

Title: {{.Paper.Title}}
Authors: {{.Paper.AuthorLine}}
Journal: {{.Paper.Journal}}{{if .Paper.Year}} ({{.Paper.Year}}){{end}}
Abstract: {{if .Paper.Abstract}}{{.Paper.Abstract}}{{else}}(not available){{end}}

Cover in 3-5 sentences: methodology, key findings, clinical significance, and limitations. Refer to this paper only as [{{.Paper.CitationNumber}}].
`))

// extractionPromptTmpl probes one paper for quantitative findings.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`Extract quantitative findings from the following paper abstract.

Title: {{.Paper.Title}}
Abstract: {{.Paper.Abstract}}

For each numeric finding, identify:
- metric: what was measured (e.g. "HbA1c reduction", "relative risk")
- value: the reported number as written
- unit: the unit or scale ("%", "mmol/L", "ratio"), empty if none
- population: the studied group, empty if not stated
- context: one short clause of qualifying detail, empty if none

Respond with a JSON object containing a "findings" array. Each element must have all fields listed above. Report only numbers the abstract actually states. If the abstract contains no quantitative findings, respond with {"findings": []}. Do not include any text outside the JSON object.

Example response:
{"findings": [{"metric": "HbA1c reduction", "value": "1.2", "unit": "%", "population": "adults with type 2 diabetes", "context": "at 52 weeks versus placebo"}]}
`))

// tablePromptTmpl turns validated findings into a Markdown table.
var tablePromptTmpl = template.Must(template.New("table").Parse(`Build a Markdown summary table from the following quantitative findings for a literature review section titled "{{.Heading}}".

Findings (one per line, source citation number first):
{{range .Rows}}[{{.Citation}}] {{.Metric}}: {{.Value}}{{if .Unit}} {{.Unit}}{{end}}{{if .Population}} in {{.Population}}{{end}}{{if .Context}} ({{.Context}}){{end}}
{{end}}
Produce a table with columns: Finding | Value | Population | Source. The Source column holds the bracketed citation number. Include every finding listed above and nothing else. Respond with the Markdown table only, no prose before or after.
`))

// synthesisPromptTmpl combines the digests into section prose.
var synthesisPromptTmpl = template.Must(template.New("synthesis").Parse(`Write the "{{.Heading}}" section of a literature review on "{{.Topic}}".

You have {{len .Papers}} sources, numbered as shown:
{{range .Papers}}[{{.CitationNumber}}] {{.Title}} ({{.AuthorLine}}{{if .Year}}, {{.Year}}{{end}})
{{end}}
Per-source digests:
{{range .Digests}}{{.}}

{{end}}{{if .Table}}A findings table will appear under the section heading; reference it where helpful.
{{end}}
Write 2-4 paragraphs of flowing prose. Cite claims with the bracketed numbers above; use only those numbers. Do not add headings, bullet lists, or a conclusion.
`))

// framingPromptTmpl generates abstract, introduction, discussion and
// conclusion from the already-renumbered section text.
var framingPromptTmpl = template.Must(template.New("framing").Parse(`Write the {{.Part}} of a literature review titled "{{.Title}}" on the topic "{{.Topic}}".

The body sections, with final citation numbering, are:

{{.Body}}

{{.Instructions}} Cite only bracketed numbers that already appear in the body text above; never introduce a citation number that is not present there. Respond with the {{.Part}} text only.
`))

// framingInstructions holds the per-part writing guidance.
var framingInstructions = map[string]string{
	"abstract":     "Write one paragraph of 150-250 words summarizing scope, evidence, and key conclusions.",
	"introduction": "Write 2-3 paragraphs motivating the topic and previewing the sections.",
	"discussion":   "Write 2-3 paragraphs synthesizing themes across sections, noting agreements, contradictions, and evidence gaps.",
	"conclusion":   "Write one closing paragraph with the main takeaways and directions for future research.",
}

func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

type analysisPromptData struct {
	Topic   string
	Heading string
	Paper   types.UnifiedPaper
}

type synthesisPromptData struct {
	Topic   string
	Heading string
	Papers  []types.UnifiedPaper
	Digests []string
	Table   string
}

type tablePromptData struct {
	Heading string
	Rows    []findingRow
}

type framingPromptData struct {
	Part         string
	Title        string
	Topic        string
	Body         string
	Instructions string
}
