package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/idelchi/codesize/internal/codesize"
)

// jsonReport is the JSON form of a finished scan.
type jsonReport struct {
	Metric  string                         `json:"metric"`
	Totals  []codesize.ExtTotal            `json:"totals,omitempty"`
	Largest map[string][]codesize.FileStat `json:"largest,omitempty"`
}

// PrintJSON outputs the collected statistics in JSON format. Values are
// always raw numbers.
func PrintJSON(collector codesize.Collector, metric codesize.Metric, writer io.Writer) error {
	report := jsonReport{Metric: metric.String()}

	switch c := collector.(type) {
	case *codesize.SumCollector:
		report.Totals = c.Totals()
	case *codesize.TopKCollector:
		report.Largest = c.Largest()
	default:
		return fmt.Errorf("unsupported collector %T", collector)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}
