package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tobin4900/ai-resume-matcher/internal/logger"
	"github.com/tobin4900/ai-resume-matcher/internal/matchclient"
	"github.com/tobin4900/ai-resume-matcher/internal/summary"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Send a resume and a job description to the match service and summarize the analysis",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("resume", "r", "", "resume file (pdf, docx or plain text)")
	matchCmd.Flags().String("job", "", "job description text")
	matchCmd.Flags().String("job-file", "", "file with the job description, - for stdin")
	matchCmd.Flags().String("base-url", "", "match service base url")
	matchCmd.Flags().Duration("timeout", 0, "request timeout")
	addOutputFlags(matchCmd)

	matchCmd.MarkFlagRequired("resume")

	viper.BindPFlag("endpoint.base-url", matchCmd.Flags().Lookup("base-url"))
	viper.BindPFlag("endpoint.timeout", matchCmd.Flags().Lookup("timeout"))
}

func runMatch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	resumePath, _ := cmd.Flags().GetString("resume")
	job, _ := cmd.Flags().GetString("job")
	jobFile, _ := cmd.Flags().GetString("job-file")
	output, _ := cmd.Flags().GetString("output")
	raw, _ := cmd.Flags().GetBool("raw")

	jobDescription, err := resolveJobDescription(job, jobFile, os.Stdin)
	if err != nil {
		log.Fatal("reading the job description", zap.Error(err))
	}

	resumeFile, err := os.Open(resumePath)
	if err != nil {
		log.Fatal("opening the resume", zap.Error(err))
	}
	defer resumeFile.Close()

	client, err := matchclient.New(log, matchclient.Options{
		BaseURL:   config.Endpoint.BaseURL,
		Path:      config.Endpoint.Path,
		Timeout:   config.Endpoint.Timeout,
		UserAgent: config.Endpoint.UserAgent,
	})
	if err != nil {
		log.Fatal("creating the match client", zap.Error(err))
	}

	log = logger.WithEndpoint(log, client.Endpoint())
	log.Info("analyzing resume", zap.String("resume", resumePath))

	resp, err := client.Match(ctx, matchclient.Request{
		ResumeName:     filepath.Base(resumePath),
		Resume:         resumeFile,
		JobDescription: jobDescription,
	})
	if err != nil {
		var statusErr *matchclient.StatusError
		if errors.As(err, &statusErr) {
			log.Fatal("match service rejected the request",
				zap.Int("status", statusErr.StatusCode),
				zap.String("error", statusErr.Message),
			)
		}
		log.Fatal("matching the resume", zap.Error(err))
	}

	log.Debug("got analysis", zap.Int("status", resp.StatusCode), zap.Int("length", len(resp.Text)))

	if err := writeReport(cmd.OutOrStdout(), summary.Summarize(resp.Text), output, raw); err != nil {
		log.Fatal("writing the report", zap.Error(err))
	}
}
