package reports

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/ternarybob/probo/internal/runner"
)

// JUnit report schema, the subset CI servers consume. One testsuite element
// per registered suite, ordered by suite name.

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Skipped  int              `xml:"skipped,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string        `xml:"name,attr"`
	Time    string        `xml:"time,attr"`
	Failure *junitFailure `xml:"failure,omitempty"`
	Skipped *struct{}     `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
}

// WriteJUnit writes the summary as JUnit XML to path.
func WriteJUnit(summary *runner.RunSummary, path string) error {
	doc := junitTestSuites{
		Name:     summary.RunID,
		Tests:    summary.Total,
		Failures: summary.Failed,
		Skipped:  summary.Skipped,
		Time:     fmt.Sprintf("%.3f", summary.Duration.Seconds()),
	}

	// Results arrive sorted by full name, so grouping by suite is a single
	// pass.
	var current *junitTestSuite
	for _, result := range summary.Results {
		if current == nil || current.Name != result.Suite {
			doc.Suites = append(doc.Suites, junitTestSuite{Name: result.Suite})
			current = &doc.Suites[len(doc.Suites)-1]
		}

		tc := junitTestCase{
			Name: result.Name,
			Time: fmt.Sprintf("%.3f", result.Duration.Seconds()),
		}
		current.Tests++
		switch result.Status {
		case runner.StatusFailed:
			current.Failures++
			tc.Failure = &junitFailure{Message: result.Error}
		case runner.StatusSkipped:
			current.Skipped++
			tc.Skipped = &struct{}{}
		}
		current.Cases = append(current.Cases, tc)
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JUnit report: %w", err)
	}
	data = append([]byte(xml.Header), data...)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JUnit report: %w", err)
	}
	return nil
}
