// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gradmatch/matcher/internal/pipeline"
	"github.com/gradmatch/matcher/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintUserResult outputs a human-readable summary of one user's run.
func (p *Printer) PrintUserResult(result *pipeline.UserResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Outcome:    %s\n", result.Outcome))
	if result.Algorithm != "" {
		sb.WriteString(fmt.Sprintf("Algorithm:  %s\n", result.Algorithm))
	}
	sb.WriteString(fmt.Sprintf("Relaxation: level %d (accuracy %d)\n",
		result.RelaxationLevel, result.AccuracyScore))
	if result.FallbackReason != "" {
		sb.WriteString(fmt.Sprintf("Fallback:   %s\n", result.ErrorCategory))
	}

	if len(result.Matches) > 0 {
		sb.WriteString("\nMatches:\n")
		count := min(len(result.Matches), maxItemsToShow)
		for i := 0; i < count; i++ {
			m := result.Matches[i]
			sb.WriteString(fmt.Sprintf("  %3d  %s | %s (%s)\n",
				m.MatchScore, m.Candidate.Job.Title, m.Candidate.Job.Company,
				m.Candidate.Job.City))
		}
		if len(result.Matches) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Matches)-maxItemsToShow))
		}
	}

	p.printBox(fmt.Sprintf("Match run: %s", result.UserEmail), sb.String())
}

// PrintBatchSummary outputs the aggregate counters of one batch run.
func (p *Printer) PrintBatchSummary(summary *pipeline.BatchSummary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Users:         %d\n", summary.Users))
	sb.WriteString(fmt.Sprintf("Matched:       %d\n", summary.Matched))
	sb.WriteString(fmt.Sprintf("Zero-match:    %d\n", summary.ZeroMatch))
	sb.WriteString(fmt.Sprintf("Quota-reached: %d\n", summary.QuotaReached))
	sb.WriteString(fmt.Sprintf("Failed:        %d\n", summary.Failed))
	sb.WriteString(fmt.Sprintf("Total matches: %d\n", summary.TotalMatches))
	sb.WriteString(fmt.Sprintf("Fallbacks:     %d\n", summary.Fallbacks))
	sb.WriteString(fmt.Sprintf("Duration:      %s", summary.Duration.Round(10*time.Millisecond)))

	p.printBox("Batch summary", sb.String())
}

// PrintProvenance outputs one match's audit record.
func (p *Printer) PrintProvenance(rec *types.MatchProvenance) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:        %s\n", rec.JobHash))
	sb.WriteString(fmt.Sprintf("Algorithm:  %s\n", rec.MatchAlgorithm))
	if rec.AIModel != "" {
		sb.WriteString(fmt.Sprintf("Model:      %s (%s)\n", rec.AIModel, rec.PromptVersion))
		sb.WriteString(fmt.Sprintf("Latency:    %dms, $%.5f\n", rec.AILatencyMS, rec.AICostUSD))
	}
	if rec.ErrorCategory != "" {
		sb.WriteString(fmt.Sprintf("Fallback:   %s\n", rec.ErrorCategory))
	}
	sb.WriteString(fmt.Sprintf("Confidence: %.2f\n", rec.ConfidenceScore))
	sb.WriteString(fmt.Sprintf("Cache hit:  %v", rec.CacheHit))

	p.printBox(fmt.Sprintf("Provenance: %s", rec.UserEmail), sb.String())
}
