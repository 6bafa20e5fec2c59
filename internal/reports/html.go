package reports

import (
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/ternarybob/probo/internal/runner"
)

const htmlReport = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Run {{.RunID}}</title>
<style>
  body { font-family: -apple-system, Segoe UI, sans-serif; margin: 2em; color: #222; }
  h1 { font-size: 1.3em; }
  .meta { color: #666; margin-bottom: 1.5em; }
  table { border-collapse: collapse; width: 100%; }
  th, td { text-align: left; padding: 6px 12px; border-bottom: 1px solid #ddd; }
  th { background: #f5f5f5; }
  .passed { color: #1a7f37; font-weight: bold; }
  .failed { color: #cf222e; font-weight: bold; }
  .skipped { color: #9a6700; font-weight: bold; }
  .error { font-family: monospace; font-size: 0.85em; color: #cf222e; }
</style>
</head>
<body>
<h1>Run {{.RunID}}</h1>
<div class="meta">
  Environment: {{.Environment}} |
  Started: {{.StartedAt.Format "2006-01-02 15:04:05"}} |
  Duration: {{formatDuration .Duration}} |
  <span class="passed">{{.Passed}} passed</span>,
  <span class="failed">{{.Failed}} failed</span>,
  <span class="skipped">{{.Skipped}} skipped</span>
</div>
<table>
<tr><th>Case</th><th>Status</th><th>Duration</th><th>Attempts</th><th>Detail</th></tr>
{{range .Results}}
<tr>
  <td>{{.FullName}}</td>
  <td class="{{.Status}}">{{.Status}}</td>
  <td>{{formatDuration .Duration}}</td>
  <td>{{.Attempts}}</td>
  <td>
    {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
    {{if .Screenshot}}<a href="{{.Screenshot}}">screenshot</a>{{end}}
  </td>
</tr>
{{end}}
</table>
</body>
</html>
`

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"formatDuration": func(d time.Duration) string {
		return d.Round(time.Millisecond).String()
	},
}).Parse(htmlReport))

// WriteHTML writes the summary as a standalone HTML page to path.
func WriteHTML(summary *runner.RunSummary, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create HTML report: %w", err)
	}
	defer f.Close()

	if err := htmlTemplate.Execute(f, summary); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}
