package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/textsummarizer/internal/profile"
	"github.com/hrygo/textsummarizer/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "textsummarizer",
	Short:         `Summarize text, PDF and DOCX documents with an LLM backend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Systemd services get their environment from the unit file.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		logger, err := newLogger(cmd.ErrOrStderr(), viper.GetString("log-level"), viper.GetString("log-format"))
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.StringFull())
	},
}

func init() {
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "text")

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "", `mode, can be "prod" or "dev"`)
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("backend-url", "", "base URL of the summarization backend")
	flags.Bool("direct", false, "summarize in-process instead of calling the backend")
	flags.String("export-dir", "", "directory that receives exported documents")
	flags.String("metrics-addr", "", "serve session metrics of summarize and shell on this address")
	flags.String("llm-provider", "", "LLM provider (openai, deepseek, siliconflow, dashscope, openrouter, ollama)")
	flags.String("llm-model", "", "LLM model name")
	flags.String("llm-base-url", "", "LLM base URL for custom providers")
	flags.String("llm-api-key", "", "LLM API key")
	flags.String("prompts-file", "", "YAML file overriding the summarization prompts")
	flags.Bool("strict-llm", false, "fail instead of falling back to extractive summaries")

	for _, name := range []string{
		"mode", "log-level", "log-format", "backend-url", "direct", "export-dir", "metrics-addr",
		"llm-provider", "llm-model", "llm-base-url", "llm-api-key", "prompts-file", "strict-llm",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("summarizer")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	rootCmd.AddCommand(serveCmd, summarizeCmd, shellCmd, versionCmd)
}

// loadProfile merges SUMMARIZER_* variables with explicitly set flags.
// Flags win.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{}
	p.FromEnv()

	overlay := func(dst *string, key string) {
		if viper.IsSet(key) && viper.GetString(key) != "" {
			*dst = viper.GetString(key)
		}
	}
	overlay(&p.Mode, "mode")
	overlay(&p.Addr, "addr")
	overlay(&p.BackendURL, "backend-url")
	overlay(&p.ExportDir, "export-dir")
	overlay(&p.MetricsAddr, "metrics-addr")
	overlay(&p.LLMProvider, "llm-provider")
	overlay(&p.LLMModel, "llm-model")
	overlay(&p.LLMBaseURL, "llm-base-url")
	overlay(&p.LLMAPIKey, "llm-api-key")
	overlay(&p.PromptsFile, "prompts-file")
	if viper.IsSet("port") && viper.GetInt("port") != 0 {
		p.Port = viper.GetInt("port")
	}
	if viper.IsSet("strict-llm") {
		p.StrictLLM = viper.GetBool("strict-llm")
	}

	p.Version = version.GetCurrentVersion(p.Mode)
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return p, nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, errors.Errorf("invalid log format %q", format)
}

// isRunningAsSystemdService detects if the process is running under systemd
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
