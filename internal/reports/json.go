package reports

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ternarybob/probo/internal/runner"
)

// WriteJSON writes the summary as indented JSON to path.
func WriteJSON(summary *runner.RunSummary, path string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}
