// Package runner owns test registration, selection, and execution. Suites
// register cases with markers; the runner filters them, fans them out over a
// worker pool, retries failures, and collects results for reporting.
package runner

// Case is a single registered test. Run receives a per-case Context carrying
// the browser session, API client, and fixture reader. A nil error means the
// case passed.
type Case struct {
	Name         string
	Markers      []string
	NeedsBrowser bool
	Run          func(*Context) error
}

// HasMarker reports whether the case carries the given marker.
func (c Case) HasMarker(marker string) bool {
	for _, m := range c.Markers {
		if m == marker {
			return true
		}
	}
	return false
}

// Suite is a named group of cases. The suite name prefixes each case name in
// filters and reports, joined with a slash.
type Suite struct {
	Name  string
	Cases []Case
}
