// Package reports renders a run summary into the configured output formats.
// All writers receive the same RunSummary and emit one file each into the
// per-run results directory.
package reports

import (
	"fmt"
	"path/filepath"

	"github.com/ternarybob/probo/internal/runner"
)

// Write renders the summary in every requested format into dir. Unknown
// format names are an error; nothing written before the error is removed.
func Write(summary *runner.RunSummary, dir string, formats []string) ([]string, error) {
	var written []string
	for _, format := range formats {
		var path string
		var err error
		switch format {
		case "json":
			path = filepath.Join(dir, "report.json")
			err = WriteJSON(summary, path)
		case "junit":
			path = filepath.Join(dir, "report.xml")
			err = WriteJUnit(summary, path)
		case "html":
			path = filepath.Join(dir, "report.html")
			err = WriteHTML(summary, path)
		default:
			return written, fmt.Errorf("unknown report format %q", format)
		}
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
