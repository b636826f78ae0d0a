package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tobin4900/ai-resume-matcher/internal/ai"
	"github.com/tobin4900/ai-resume-matcher/internal/ai/gemini"
	"github.com/tobin4900/ai-resume-matcher/internal/logger"
	"github.com/tobin4900/ai-resume-matcher/internal/secrets"
	"github.com/tobin4900/ai-resume-matcher/internal/server"
)

const providerGemini = "gemini"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the match service",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8000)")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	log.Info("starting the resume matcher service", zap.String("version", version))

	analyzer, err := newAnalyzer(ctx, config.AI, log)
	if err != nil {
		log.Fatal(
			"creating the analyzer",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	srv := server.New(server.Config{
		Listen:          config.Server.Listen,
		MaxUploadMB:     config.Server.MaxUploadMB,
		AllowedOrigins:  config.Server.AllowedOrigins,
		RateLimitPerMin: config.Server.RateLimitPerMin,
	}, analyzer, log)

	if err := srv.Run(ctx); err != nil {
		log.Fatal("serving", zap.Error(err))
	}
}

func newAnalyzer(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Analyzer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != providerGemini {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	aiLogger := logger.WithProvider(log, providerGemini, cfg.Gemini.Model)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries,
		aiLogger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries)))
	if err != nil {
		return nil, err
	}

	return gemini.NewAnalyzer(generator, cfg.Gemini.MaxLogLength, aiLogger), nil
}
