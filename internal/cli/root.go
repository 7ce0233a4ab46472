package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/factlens/internal/logging"
	"github.com/ppiankov/factlens/internal/model"
)

// Version is set at build time with -ldflags "-X github.com/ppiankov/factlens/internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile   string
	envFile   string
	verbose   bool
	configErr error
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "factlens",
	Short: "FactLens - claim extraction and evidence-backed credibility checks",
	Long: `FactLens checks short social-media messages and screenshots for
misinformation risk.

It extracts up to three verifiable claims, matches them against a curated
corpus of authoritative evidence, and returns a trusted / untrusted /
insufficient verdict with a score, reasons and advice.

A structured-completion service (OpenAI-compatible) is optional: without it
FactLens falls back to rule-based extraction and never fails a request.`,
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
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "factlens %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.factlens/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// legacyEnv maps config keys to the environment names honoured besides FACTLENS_*.
// Earlier names win.
var legacyEnv = map[string][]string{
	"llm.enabled":              {"LLM_ENABLED"},
	"llm.provider":             {"LLM_PROVIDER"},
	"llm.api_key":              {"LLM_API_KEY"},
	"llm.base_url":             {"LLM_BASE_URL"},
	"llm.text_model":           {"LLM_MODEL_TEXT", "LLM_MODEL"},
	"llm.vision_model":         {"LLM_MODEL_VISION", "LLM_MODEL"},
	"llm.json_response_format": {"LLM_JSON_RESPONSE_FORMAT"},
	"server.port":              {"PORT"},
}

// initConfig layers defaults, the config file and the environment into viper
func initConfig() {
	if err := godotenv.Load(envFile); err != nil && rootCmd.PersistentFlags().Changed("env-file") {
		fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", envFile, err)
	}

	configErr = setupViper(viper.GetViper(), cfgFile)
	if configErr == nil && verbose && viper.ConfigFileUsed() != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setupViper registers every config key through the defaults, merges the
// config file and binds the environment
func setupViper(v *viper.Viper, file string) error {
	defaults, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return fmt.Errorf("read defaults: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".factlens", "config.yaml")
		if _, statErr := os.Stat(path); statErr == nil {
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix("FACTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		envs := append([]string{"FACTLENS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// loadConfig returns the effective configuration
func loadConfig() (*model.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return decodeConfig(viper.GetViper())
}

// switchKeys are the boolean keys that also accept yes/on style values
var switchKeys = []string{"llm.enabled", "llm.json_response_format"}

func decodeConfig(v *viper.Viper) (*model.Config, error) {
	for _, key := range switchKeys {
		if raw := strings.TrimSpace(v.GetString(key)); raw != "" {
			v.Set(key, parseSwitch(raw))
		}
	}

	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// LLM_TIMEOUT_MS is in milliseconds, unlike llm.timeout
	if ms := os.Getenv("LLM_TIMEOUT_MS"); ms != "" && os.Getenv("FACTLENS_LLM_TIMEOUT") == "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n <= 0 {
			return nil, errors.New("LLM_TIMEOUT_MS must be a positive integer")
		}
		cfg.LLM.Timeout = time.Duration(n) * time.Millisecond
	}
	return cfg, nil
}

// parseSwitch treats 1, true, yes and on as enabled and anything else as disabled
func parseSwitch(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// newLogger returns the stderr logger honouring --verbose
func newLogger() *slog.Logger {
	return logging.New(os.Stderr, verbose)
}
