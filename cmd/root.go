package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tobin4900/ai-resume-matcher/internal/logger"
	"github.com/tobin4900/ai-resume-matcher/internal/matchclient"
	"github.com/tobin4900/ai-resume-matcher/internal/server"
)

const (
	app = "resume-matcher"
)

type Config struct {
	Endpoint *EndpointConfig `mapstructure:"endpoint"`
	Server   *ServerConfig   `mapstructure:"server"`
	AI       *AIConfig       `mapstructure:"ai"`
}

// EndpointConfig points the match command at the match service.
type EndpointConfig struct {
	BaseURL   string        `mapstructure:"base-url"`
	Path      string        `mapstructure:"path"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user-agent"`
}

type ServerConfig struct {
	Listen          string   `mapstructure:"listen"`
	MaxUploadMB     int64    `mapstructure:"max-upload-mb"`
	AllowedOrigins  []string `mapstructure:"allowed-origins"`
	RateLimitPerMin int      `mapstructure:"rate-limit-per-min"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-matcher scores a resume against a job description and summarizes the analysis",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	if err := bindEnv(viper.GetViper()); err != nil {
		log.Fatalf("binding environment variables: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint.base-url", matchclient.DefaultBaseURL)
	v.SetDefault("endpoint.path", matchclient.DefaultPath)
	v.SetDefault("endpoint.timeout", 2*time.Minute)
	v.SetDefault("endpoint.user-agent", app)

	v.SetDefault("server.listen", server.DefaultListen)
	v.SetDefault("server.max-upload-mb", server.DefaultMaxUploadMB)
	v.SetDefault("server.allowed-origins", []string{"*"})
	v.SetDefault("server.rate-limit-per-min", 30)

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.model", "gemini-1.5-flash")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)
}

func bindEnv(v *viper.Viper) error {
	envs := map[string]string{
		"endpoint.base-url":      "RESUME_MATCHER_BASE_URL",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	}

	for key, env := range envs {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}

	return nil
}

func initConfig() {
	// A missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional unless it was given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Endpoint == nil {
		config.Endpoint = &EndpointConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}
