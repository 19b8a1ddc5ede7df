package eval

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// RenderMarkdown produces the human-readable report.
func RenderMarkdown(r *Report) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Retrieval evaluation (k=%d)\n\n", r.K)
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))

	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| accuracy@%d | %.4f |\n", r.K, r.Metrics.AccuracyAtK)
	fmt.Fprintf(&b, "| MRR | %.4f |\n", r.Metrics.MRR)
	fmt.Fprintf(&b, "| nDCG@%d | %.4f |\n\n", r.K, r.Metrics.NDCGAtK)

	fmt.Fprintf(&b, "Questions: %d total, %d correct, %d incorrect\n\n",
		r.Summary.TotalQuestions, r.Summary.Correct, r.Summary.Incorrect)

	b.WriteString("## Per question\n\n")
	b.WriteString("| ID | acc | RR | nDCG | Expected | Retrieved |\n|---|---|---|---|---|---|\n")
	for i := range r.Results {
		q := &r.Results[i]
		fmt.Fprintf(&b, "| %s | %.0f | %.4f | %.4f | %s | %s |\n",
			q.ID, q.Accuracy, q.RR, q.NDCG,
			strings.Join(q.ExpectedIDs, ", "),
			strings.Join(q.RetrievedID, ", "))
	}
	b.WriteString("\n")

	return []byte(b.String())
}

var htmlReportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Retrieval evaluation (k={{.K}})</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
th { background: #f5f5f5; }
.miss { background: #fdecea; }
</style>
</head>
<body>
<h1>Retrieval evaluation (k={{.K}})</h1>
<p>Generated: {{.GeneratedAt.Format "2006-01-02 15:04:05 UTC"}}</p>
<table>
<tr><th>Metric</th><th>Value</th></tr>
<tr><td>accuracy@{{.K}}</td><td>{{printf "%.4f" .Metrics.AccuracyAtK}}</td></tr>
<tr><td>MRR</td><td>{{printf "%.4f" .Metrics.MRR}}</td></tr>
<tr><td>nDCG@{{.K}}</td><td>{{printf "%.4f" .Metrics.NDCGAtK}}</td></tr>
</table>
<p>Questions: {{.Summary.TotalQuestions}} total, {{.Summary.Correct}} correct, {{.Summary.Incorrect}} incorrect</p>
<h2>Per question</h2>
<table>
<tr><th>ID</th><th>Question</th><th>acc</th><th>RR</th><th>nDCG</th><th>Expected</th><th>Retrieved</th></tr>
{{range .Results}}<tr{{if eq .Accuracy 0.0}} class="miss"{{end}}>
<td>{{.ID}}</td><td>{{.Question}}</td>
<td>{{printf "%.0f" .Accuracy}}</td>
<td>{{printf "%.4f" .RR}}</td>
<td>{{printf "%.4f" .NDCG}}</td>
<td>{{range $i, $id := .ExpectedIDs}}{{if $i}}, {{end}}{{$id}}{{end}}</td>
<td>{{range $i, $id := .RetrievedID}}{{if $i}}, {{end}}{{$id}}{{end}}</td>
</tr>{{end}}
</table>
</body>
</html>
`))

// RenderHTML produces the browsable report.
func RenderHTML(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlReportTmpl.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}
	return buf.Bytes(), nil
}

// Persist writes all three report renderings through the store.
func Persist(store ReportStore, r *Report) error {
	if err := store.SaveEvalReport(r); err != nil {
		return err
	}
	if err := store.SaveEvalReportMarkdown(RenderMarkdown(r)); err != nil {
		return err
	}
	html, err := RenderHTML(r)
	if err != nil {
		return err
	}
	return store.SaveEvalReportHTML(html)
}
