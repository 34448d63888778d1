package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// OutputFormat describes how an AuditReport is rendered.
type OutputFormat string

const (
	// OutputFormatJSON renders the report as indented JSON with "root", "changed" and "slots" keys.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatTable renders the report as a human-readable table.
	OutputFormatTable OutputFormat = "table"
)

// SupportedOutputFormats lists every OutputFormat understood by WriteReport.
var SupportedOutputFormats = []OutputFormat{OutputFormatJSON, OutputFormatTable}

// IsSupportedOutputFormat indicates whether format can be passed to WriteReport.
func IsSupportedOutputFormat(format OutputFormat) bool {
	return slices.Contains(SupportedOutputFormats, format)
}

// WriteReport renders the report to w in the given format.
func WriteReport(w io.Writer, report *AuditReport, format OutputFormat) error {
	switch format {
	case OutputFormatJSON:
		return WriteJSON(w, report)
	case OutputFormatTable:
		return WriteTable(w, report)
	default:
		return errors.Errorf("unsupported output format %q", format)
	}
}

// WriteJSON renders the report as JSON indented with two spaces, followed by a newline.
func WriteJSON(w io.Writer, report *AuditReport) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return errors.WithStack(err)
}

// WriteTable renders the report as a table with one row per distinct slot, and the fingerprint in the footer.
func WriteTable(w io.Writer, report *AuditReport) error {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Slot", "Block " + report.BlockA.String(), "Block " + report.BlockB.String(), "Changed", "Error"})

	for _, slot := range report.Slots() {
		result := report.Results[slot]
		table.Append([]string{
			slot.String(),
			result.A.Value.Hex(),
			result.B.Value.Hex(),
			strconv.FormatBool(result.Changed),
			readErrorSummary(result),
		})
	}

	table.SetFooter([]string{
		"Root",
		report.Fingerprint.String(),
		"",
		fmt.Sprintf("%d changed", len(report.ChangedSlots)),
		fmt.Sprintf("%d failed", report.FailedReads()),
	})
	table.Render()
	return nil
}

// readErrorSummary describes which reads of a slot failed, or returns an empty string.
func readErrorSummary(result *SlotReadResult) string {
	switch {
	case result.A.Failed() && result.B.Failed():
		return "a: " + result.A.Err.Error() + "; b: " + result.B.Err.Error()
	case result.A.Failed():
		return "a: " + result.A.Err.Error()
	case result.B.Failed():
		return "b: " + result.B.Err.Error()
	default:
		return ""
	}
}
