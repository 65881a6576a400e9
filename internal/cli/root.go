package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/alphasentinel/internal/model"
)

// Version is set at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	envFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "alphasentinel",
	Short: "AlphaSentinel - earnings call claim verification against filings",
	Long: `AlphaSentinel checks statements made on an earnings call against the
company's annual filing (10-K).

It extracts up to three salient, checkable claims from a transcript,
retrieves the most relevant filing passages for each, and asks a language
model to score the discrepancy between claim and evidence from 1 (fully
supported) to 10 (high discrepancy).

Scores are model judgments, not findings of fact.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of AlphaSentinel.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("alphasentinel %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.alphasentinel/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with provider credentials")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig loads .env credentials, then the config file and ENV variables
func initConfig() {
	if err := godotenv.Load(envFile); err != nil && verbose && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", envFile, err)
	}

	setupLogger()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".alphasentinel"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match ALPHASENTINEL_*, e.g. ALPHASENTINEL_LLM_PROVIDER
	viper.SetEnvPrefix("ALPHASENTINEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// envKeys are the settings Unmarshal picks up from the environment without a config file
var envKeys = []string{
	"llm.provider", "llm.model", "llm.base_url", "llm.json_mode",
	"embedding.provider", "embedding.model", "embedding.base_url",
	"retrieval.top_k", "retrieval.hybrid",
	"adjudication.workers",
	"cache.enabled", "cache.dir",
	"rate_limiting.requests_per_second",
	"http.http_proxy", "http.https_proxy", "http.no_proxy",
}

// loadConfig layers the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Ollama endpoints come from the environment like the API keys
	if base := os.Getenv("OLLAMA_BASE_URL"); base != "" {
		if strings.EqualFold(cfg.LLM.Provider, "ollama") && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = base
		}
		if strings.EqualFold(cfg.Embedding.Provider, "ollama") && cfg.Embedding.BaseURL == "" {
			cfg.Embedding.BaseURL = base
		}
	}

	return cfg, nil
}

func setupLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
