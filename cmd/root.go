package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/mockview/mockview/internal/ai/gemini"
	"github.com/mockview/mockview/internal/logger"
	"github.com/mockview/mockview/internal/metrics"
	"github.com/mockview/mockview/internal/secrets"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app = "mockview"
)

type Config struct {
	ListenAddr string        `mapstructure:"listen-addr"`
	AudioDir   string        `mapstructure:"audio-dir"`
	AccountsDB string        `mapstructure:"accounts-db"`
	AI         *AIConfig     `mapstructure:"ai"`
	Speech     *SpeechConfig `mapstructure:"speech"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type SpeechConfig struct {
	URL   string `mapstructure:"url"`
	Voice string `mapstructure:"voice"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "mockview runs AI scored mock interviews from a candidate's resume",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is mockview.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for commands that talk to the AI backend.
	if serveCmd.CalledAs() == "" && consoleCmd.CalledAs() == "" {
		return
	}

	viper.SetDefault("listen-addr", ":8080")
	viper.SetDefault("audio-dir", "static/audio")
	viper.SetDefault("accounts-db", "mockview.db")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// newGeminiClient builds the shared AI client from the config. Both the
// serve and console commands go through it.
func newGeminiClient(ctx context.Context, config *Config, counters *metrics.Metrics, base *zap.Logger) (*gemini.Client, *GeminiConfig, error) {
	if config == nil || config.AI == nil || config.AI.Gemini == nil {
		return nil, nil, fmt.Errorf("gemini configuration is required under the 'ai.gemini' key")
	}

	cfg := config.AI.Gemini

	apiKeyFile := cfg.APIKeyFile
	if apiKeyFile == "" {
		apiKeyFile = viper.GetString("ai.gemini.api-key-file")
	}

	apiKey, err := secrets.Load("gemini api key", apiKeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	aiLogger := logger.WithFields(base,
		zap.String("provider", "gemini"),
		zap.String(logger.FieldModel, cfg.Model),
		zap.Int("ai_retry_attempts", cfg.MaxRetries),
	)

	client, err := gemini.New(ctx, apiKey, cfg.Model, cfg.MaxRetries, counters, aiLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("building gemini client: %w", err)
	}

	return client, cfg, nil
}
