package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tobin4900/ai-resume-matcher/internal/summary"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize an analysis text from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSummarize(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	addOutputFlags(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) {
	log := newLogger()

	name := stdinName
	if len(args) == 1 {
		name = args[0]
	}

	text, err := readInput(name, os.Stdin)
	if err != nil {
		log.Fatal("reading the analysis", zap.String("input", name), zap.Error(err))
	}

	output, _ := cmd.Flags().GetString("output")
	raw, _ := cmd.Flags().GetBool("raw")

	if err := writeReport(cmd.OutOrStdout(), summary.Summarize(text), output, raw); err != nil {
		log.Fatal("writing the report", zap.Error(err))
	}
}
