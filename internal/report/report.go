// Package report renders a match summary for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/tobin4900/ai-resume-matcher/internal/summary"
)

const (
	strongScore   = 80
	moderateScore = 60
)

type Options struct {
	// ShowRaw appends the unprocessed analysis text.
	ShowRaw bool
}

// Text writes a human readable report.
func Text(w io.Writer, s summary.MatchSummary, opts Options) error {
	var b strings.Builder

	fmt.Fprintln(&b, color.New(color.Bold, color.Underline).Sprint("Match Analysis"))
	fmt.Fprintf(&b, "\nMatch score: %s (%s)\n", scoreColor(s.Score)("%d%%", s.Score), Band(s.Score))

	fmt.Fprintf(&b, "\n%s\n", color.GreenString("Strengths:"))
	for _, item := range s.Strengths {
		fmt.Fprintf(&b, "  %s %s\n", color.GreenString("✓"), item)
	}

	fmt.Fprintf(&b, "\n%s\n", color.RedString("Areas for improvement:"))
	for _, item := range s.Gaps {
		fmt.Fprintf(&b, "  %s %s\n", color.RedString("✗"), item)
	}

	if opts.ShowRaw && strings.TrimSpace(s.RawText) != "" {
		fmt.Fprintf(&b, "\n%s\n%s\n", color.New(color.Bold).Sprint("Full analysis:"), strings.TrimSpace(s.RawText))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// JSON writes the summary as indented JSON.
func JSON(w io.Writer, s summary.MatchSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Band names the score range.
func Band(score int) string {
	switch {
	case score >= strongScore:
		return "strong match"
	case score >= moderateScore:
		return "moderate match"
	default:
		return "weak match"
	}
}

func scoreColor(score int) func(format string, a ...interface{}) string {
	switch {
	case score >= strongScore:
		return color.GreenString
	case score >= moderateScore:
		return color.YellowString
	default:
		return color.RedString
	}
}
