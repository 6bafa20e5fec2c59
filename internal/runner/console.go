package runner

import (
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"
)

// ConsoleReporter prints live progress to stdout. Output is serialized so
// parallel workers never interleave lines.
type ConsoleReporter struct {
	mu      sync.Mutex
	passed  *color.Color
	failed  *color.Color
	skipped *color.Color
}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		passed:  color.New(color.FgGreen),
		failed:  color.New(color.FgRed, color.Bold),
		skipped: color.New(color.FgYellow),
	}
}

func (r *ConsoleReporter) RunStarted(runID, environment string, selected int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Printf("Run %s against %q: %d case(s)\n\n", runID, environment, selected)
}

func (r *ConsoleReporter) CaseFinished(result CaseResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch result.Status {
	case StatusPassed:
		r.passed.Printf("  PASS")
	case StatusFailed:
		r.failed.Printf("  FAIL")
	case StatusSkipped:
		r.skipped.Printf("  SKIP")
	}
	fmt.Printf("  %s (%s", result.FullName(), result.Duration.Round(time.Millisecond))
	if result.Attempts > 1 {
		fmt.Printf(", %d attempts", result.Attempts)
	}
	fmt.Println(")")

	if result.Status == StatusFailed {
		fmt.Printf("        %s\n", result.Error)
		if result.Screenshot != "" {
			fmt.Printf("        screenshot: %s\n", result.Screenshot)
		}
	}
}

func (r *ConsoleReporter) RunFinished(summary *RunSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Println()
	if summary.OK() {
		r.passed.Printf("%d passed", summary.Passed)
	} else {
		r.failed.Printf("%d failed", summary.Failed)
		fmt.Printf(", ")
		r.passed.Printf("%d passed", summary.Passed)
	}
	if summary.Skipped > 0 {
		fmt.Printf(", ")
		r.skipped.Printf("%d skipped", summary.Skipped)
	}
	fmt.Printf("  (%s)\n", summary.Duration.Round(time.Millisecond))
}
