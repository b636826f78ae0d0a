package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/tobin4900/ai-resume-matcher/internal/report"
	"github.com/tobin4900/ai-resume-matcher/internal/summary"
)

const (
	OutputText = "text"
	OutputJSON = "json"

	stdinName = "-"
)

var errEmptyInput = errors.New("input is empty")

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", OutputText, "output format: text or json")
	cmd.Flags().Bool("raw", false, "include the full analysis text in the text report")
}

func writeReport(w io.Writer, s summary.MatchSummary, output string, raw bool) error {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", OutputText:
		return report.Text(w, s, report.Options{ShowRaw: raw})
	case OutputJSON:
		return report.JSON(w, s)
	default:
		return fmt.Errorf("unsupported output format: %s", output)
	}
}

// readInput reads a file, or stdin when name is empty or "-".
func readInput(name string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)

	if name = strings.TrimSpace(name); name == "" || name == stdinName {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errEmptyInput
	}

	return text, nil
}

// resolveJobDescription takes the job description from --job, then --job-file,
// and finally asks for it interactively when stdin is a terminal.
func resolveJobDescription(job, jobFile string, stdin *os.File) (string, error) {
	if job = strings.TrimSpace(job); job != "" {
		return job, nil
	}

	if strings.TrimSpace(jobFile) != "" {
		return readInput(jobFile, stdin)
	}

	if !isTerminal(stdin) {
		return "", errors.New("job description is required (use --job or --job-file)")
	}

	prompt := promptui.Prompt{
		Label: "Job description",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errEmptyInput
			}
			return nil
		},
	}

	answer, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(answer), nil
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
