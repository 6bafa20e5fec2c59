package runner

import (
	"fmt"
	"regexp"
	"strings"
)

// Filters selects which registered cases a run executes. Regex filters match
// against the full "suite/case" name; marker filters require at least one of
// the listed markers on the case.
type Filters struct {
	MustMatch    RegexList
	MustNotMatch RegexList
	Markers      []string
}

// Matches reports whether a case passes every configured filter.
func (f Filters) Matches(suiteName string, c Case) bool {
	name := suiteName + "/" + c.Name
	if f.MustMatch.IsDefined() && !f.MustMatch.AnyMatch(name) {
		return false
	}
	if f.MustNotMatch.AnyMatch(name) {
		return false
	}
	if len(f.Markers) > 0 {
		found := false
		for _, m := range f.Markers {
			if c.HasMarker(m) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// RegexList accumulates compiled patterns. It implements flag.Value so a
// command-line flag can be repeated.
type RegexList struct {
	patterns []*regexp.Regexp
}

func (r RegexList) String() string {
	var ss []string
	for _, p := range r.patterns {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set is called by the command line parser
func (r *RegexList) Set(value string) error {
	rx, err := regexp.Compile(value)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	r.patterns = append(r.patterns, rx)
	return nil
}

func (r RegexList) IsDefined() bool {
	return len(r.patterns) != 0
}

func (r RegexList) AnyMatch(s string) bool {
	for _, p := range r.patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// MarkerList implements flag.Value for a repeatable marker flag. Comma
// separated values in a single flag are also accepted.
type MarkerList struct {
	markers []string
}

func (m MarkerList) String() string {
	return strings.Join(m.markers, ",")
}

func (m *MarkerList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			m.markers = append(m.markers, part)
		}
	}
	return nil
}

func (m MarkerList) Values() []string {
	return m.markers
}
