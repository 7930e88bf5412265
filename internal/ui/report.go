// Package ui renders results for a terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/law-makers/reviewwatch/pkg/models"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// PrintSnapshot writes every review and the final verdict to w.
func PrintSnapshot(w io.Writer, s *models.Snapshot) {
	if s == nil {
		fmt.Fprintf(w, "\n%s\n\n", Error("No review results found"))
		return
	}

	fmt.Fprintf(w, "\n%s %s\n", Bold("Review results"), Dim(s.ExtractTime.Format("2006-01-02 15:04:05")))
	fmt.Fprintf(w, "%s\n", Dim(rule))

	if len(s.Reviews) == 0 {
		fmt.Fprintf(w, "  %s\n", Info("No reviews yet"))
	}
	for i, r := range s.Reviews {
		fmt.Fprintf(w, "  %s%d.%s %s %s\n",
			ColorCyan, i+1, ColorReset,
			ColorBold+ColorWhite+orDash(r.ExpertName)+ColorReset,
			Dim(orDash(r.ReviewTime)))
		fmt.Fprintf(w, "     %s %s\n", Dim("Overall:"), orDash(r.OverallEvaluation))
		fmt.Fprintf(w, "     %s %s\n", Dim("Result: "), resultColor(r.ReviewResult))
	}

	if s.FinalResult != "" {
		fmt.Fprintf(w, "%s\n", Dim(rule))
		fmt.Fprintf(w, "  %s %s\n", Bold("Final:"), resultColor(s.FinalResult))
	}
	fmt.Fprintln(w)
}

// PrintField writes a single aligned "label: value" line.
func PrintField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", ColorBold+label+":"+ColorReset, ColorWhite+value+ColorReset)
}

// resultColor highlights verdicts: outright rejections red, anything asking
// for changes yellow, the rest green.
func resultColor(s string) string {
	switch {
	case s == "":
		return Dim("-")
	case strings.Contains(s, "不同意"), strings.Contains(s, "不通过"):
		return Error(s)
	case strings.Contains(s, "修改"):
		return ColorYellow + s + ColorReset
	default:
		return Success(s)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
