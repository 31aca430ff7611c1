package actionstats

import (
	"fmt"
	"strings"

	"github.com/crytic/tokenfuzz/handler"
	"github.com/crytic/tokenfuzz/logging"
	"github.com/crytic/tokenfuzz/logging/colors"
)

// ActionCounts counts the executed calls of one action kind.
type ActionCounts struct {
	// Executed describes the amount of calls of the kind that were executed.
	Executed uint64
	// NoOps describes the amount of executed calls the handler resolved as verified no-ops.
	NoOps uint64
}

// NoOpRate returns the share of executed calls which were no-ops, or zero if none were executed.
func (c ActionCounts) NoOpRate() float64 {
	if c.Executed == 0 {
		return 0
	}
	return float64(c.NoOps) / float64(c.Executed)
}

// ActionReport describes per-kind call counts over some set of call sequences.
type ActionReport struct {
	counts map[handler.ActionKind]*ActionCounts
}

// NewActionReport creates an empty ActionReport.
func NewActionReport() *ActionReport {
	return &ActionReport{
		counts: make(map[handler.ActionKind]*ActionCounts, len(handler.ActionKinds)),
	}
}

// addCall records one executed call.
func (r *ActionReport) addCall(kind handler.ActionKind, noOp bool) {
	counts, ok := r.counts[kind]
	if !ok {
		counts = &ActionCounts{}
		r.counts[kind] = counts
	}
	counts.Executed++
	if noOp {
		counts.NoOps++
	}
}

// concatReports adds the counts of every provided report to this one.
func (r *ActionReport) concatReports(reports ...*ActionReport) {
	for _, report := range reports {
		for kind, counts := range report.counts {
			existing, ok := r.counts[kind]
			if !ok {
				existing = &ActionCounts{}
				r.counts[kind] = existing
			}
			existing.Executed += counts.Executed
			existing.NoOps += counts.NoOps
		}
	}
}

// Counts returns the counts recorded for the provided kind.
func (r *ActionReport) Counts(kind handler.ActionKind) ActionCounts {
	if counts, ok := r.counts[kind]; ok {
		return *counts
	}
	return ActionCounts{}
}

// clone returns a deep copy of the report.
func (r *ActionReport) clone() *ActionReport {
	c := NewActionReport()
	c.concatReports(r)
	return c
}

// Log returns a logging.LogBuffer with one line per executed action kind. A high no-op rate means the closed world
// rarely offers valid parameters for the kind, which weakens the campaign.
func (r *ActionReport) Log() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	for _, kind := range handler.ActionKinds {
		counts := r.Counts(kind)
		if counts.Executed == 0 {
			continue
		}
		rate := counts.NoOpRate() * 100
		rateColor := colors.Reset
		if rate >= 50 {
			rateColor = colors.Yellow
		}
		buffer.Append(
			colors.Bold, fmt.Sprintf("%-14s", kind.String()), colors.Reset,
			fmt.Sprintf(" executed: %d, no-ops: %d (", counts.Executed, counts.NoOps),
			rateColor, fmt.Sprintf("%.1f%%", rate), colors.Reset, ")\n",
		)
	}
	return buffer
}

// String returns the report as plain text.
func (r *ActionReport) String() string {
	return strings.TrimSuffix(r.Log().String(), "\n")
}
