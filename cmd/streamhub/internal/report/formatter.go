// Package report renders scenario reports for the CLI.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nfrund/streamhub/internal/scenario"
)

// Format names an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat accepts "table" or "json".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format %q (use table or json)", s)
	}
}

// Write renders r to w in the given format.
func Write(w io.Writer, r *scenario.Report, format Format) error {
	if format == FormatJSON {
		return WriteJSON(w, r)
	}
	return WriteTable(w, r)
}

// WriteTable displays steps and deliveries as aligned tables
func WriteTable(out io.Writer, r *scenario.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Scenario: %s\n\n", r.Scenario)
	fmt.Fprintln(w, "STEP\tOP\tRESULT\tDETAIL")
	fmt.Fprintln(w, "----\t--\t------\t------")
	for _, s := range r.Steps {
		result := "ok"
		if !s.OK {
			result = "FAIL"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Index, s.Op, result, dash(truncateString(s.Error, 60)))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP\tSUBSCRIBER\tPATH\tVALUE")
	fmt.Fprintln(w, "----\t----------\t----\t-----")
	if len(r.Deliveries) == 0 {
		fmt.Fprintln(w, "No deliveries")
	}
	for _, d := range r.Deliveries {
		value := fmt.Sprintf("%v", d.Value)
		if d.Error != "" {
			value = "error: " + d.Error
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", d.Step, d.Subscriber, d.Path, truncateString(value, 60))
	}

	fmt.Fprintf(w, "\nObservables: %d  Subscribers: %d  Handles: %d\n",
		r.Stats.Observables, r.Stats.Subscribers, r.Stats.Handles)
	return w.Flush()
}

// WriteJSON displays the report as indented JSON
func WriteJSON(w io.Writer, r *scenario.Report) error {
	output := struct {
		*scenario.Report
		Failed bool `json:"failed"`
	}{
		Report: r,
		Failed: r.Failed(),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen runes
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
