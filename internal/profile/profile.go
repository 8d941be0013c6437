package profile

import (
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration shared by the server and the client commands.
type Profile struct {
	Mode    string // dev, prod
	Version string

	// Server
	Addr string
	Port int

	// Client
	BackendURL  string // base URL of the summarization backend
	ExportDir   string
	MetricsAddr string // when set, client commands serve session metrics here

	// LLM configuration (OpenAI-compatible protocol)
	LLMProvider string // openai, deepseek, siliconflow, dashscope, openrouter, ollama, or a custom name with LLMBaseURL
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string
	LLMTimeout  int // seconds

	// Summarization pipeline
	SummaryMaxChars    int // chunk size
	SummaryMaxLen      int // rune budget of fallback summaries
	SummaryConcurrency int
	PromptsFile        string
	StrictLLM          bool // surface LLM failures instead of falling back to extractive summaries

	// Server limits
	RateLimit   float64 // summarize requests per second, 0 disables
	RateBurst   int
	CacheSize   int
	CacheTTL    int // seconds
	MaxUploadMB int
}

// Defaults.
const (
	DefaultPort               = 5000
	DefaultBackendURL         = "http://localhost:5000"
	DefaultLLMTimeout         = 120
	DefaultSummaryMaxChars    = 3000
	DefaultSummaryMaxLen      = 200
	DefaultSummaryConcurrency = 4
	DefaultRateBurst          = 10
	DefaultCacheSize          = 256
	DefaultCacheTTL           = 3600
	DefaultMaxUploadMB        = 50
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled reports whether an LLM provider is usable. Ollama runs
// without a key.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMProvider != "" && (p.LLMAPIKey != "" || p.LLMProvider == "ollama")
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("invalid number in environment, using default", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		slog.Warn("invalid boolean in environment, using default", "key", key, "value", value)
	}
	return defaultValue
}

// FromEnv loads configuration from SUMMARIZER_* environment variables.
// Fields that are already set are kept.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("SUMMARIZER_MODE", or(p.Mode, "dev"))
	p.Addr = getEnvOrDefault("SUMMARIZER_ADDR", p.Addr)
	p.Port = getEnvOrDefaultInt("SUMMARIZER_PORT", orInt(p.Port, DefaultPort))
	p.BackendURL = getEnvOrDefault("SUMMARIZER_BACKEND_URL", or(p.BackendURL, DefaultBackendURL))
	p.ExportDir = getEnvOrDefault("SUMMARIZER_EXPORT_DIR", p.ExportDir)
	p.MetricsAddr = getEnvOrDefault("SUMMARIZER_METRICS_ADDR", p.MetricsAddr)

	p.LLMProvider = getEnvOrDefault("SUMMARIZER_LLM_PROVIDER", p.LLMProvider)
	p.LLMAPIKey = getEnvOrDefault("SUMMARIZER_LLM_API_KEY", p.LLMAPIKey)
	p.LLMBaseURL = getEnvOrDefault("SUMMARIZER_LLM_BASE_URL", p.LLMBaseURL)
	p.LLMModel = getEnvOrDefault("SUMMARIZER_LLM_MODEL", p.LLMModel)
	p.LLMTimeout = getEnvOrDefaultInt("SUMMARIZER_LLM_TIMEOUT_SECONDS", orInt(p.LLMTimeout, DefaultLLMTimeout))

	p.SummaryMaxChars = getEnvOrDefaultInt("SUMMARIZER_MAX_CHARS", orInt(p.SummaryMaxChars, DefaultSummaryMaxChars))
	p.SummaryMaxLen = getEnvOrDefaultInt("SUMMARIZER_MAX_LEN", orInt(p.SummaryMaxLen, DefaultSummaryMaxLen))
	p.SummaryConcurrency = getEnvOrDefaultInt("SUMMARIZER_CONCURRENCY", orInt(p.SummaryConcurrency, DefaultSummaryConcurrency))
	p.PromptsFile = getEnvOrDefault("SUMMARIZER_PROMPTS_FILE", p.PromptsFile)
	p.StrictLLM = getEnvOrDefaultBool("SUMMARIZER_STRICT_LLM", p.StrictLLM)

	p.RateLimit = getEnvOrDefaultFloat("SUMMARIZER_RATE_LIMIT", p.RateLimit)
	p.RateBurst = getEnvOrDefaultInt("SUMMARIZER_RATE_BURST", orInt(p.RateBurst, DefaultRateBurst))
	p.CacheSize = getEnvOrDefaultInt("SUMMARIZER_CACHE_SIZE", orInt(p.CacheSize, DefaultCacheSize))
	p.CacheTTL = getEnvOrDefaultInt("SUMMARIZER_CACHE_TTL_SECONDS", orInt(p.CacheTTL, DefaultCacheTTL))
	p.MaxUploadMB = getEnvOrDefaultInt("SUMMARIZER_MAX_UPLOAD_MB", orInt(p.MaxUploadMB, DefaultMaxUploadMB))
}

// Validate normalizes the profile and rejects values that cannot work.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	if p.BackendURL == "" {
		p.BackendURL = DefaultBackendURL
	}
	u, err := url.Parse(p.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("invalid backend URL %q", p.BackendURL)
	}
	p.BackendURL = strings.TrimRight(p.BackendURL, "/")

	p.LLMProvider = strings.ToLower(strings.TrimSpace(p.LLMProvider))
	if p.LLMTimeout <= 0 {
		p.LLMTimeout = DefaultLLMTimeout
	}

	if p.SummaryMaxChars < 200 {
		slog.Warn("summary chunk size too small, using default", "max_chars", p.SummaryMaxChars)
		p.SummaryMaxChars = DefaultSummaryMaxChars
	}
	if p.SummaryMaxLen <= 0 {
		p.SummaryMaxLen = DefaultSummaryMaxLen
	}
	if p.SummaryConcurrency <= 0 {
		p.SummaryConcurrency = DefaultSummaryConcurrency
	}

	if p.RateLimit < 0 {
		return errors.Errorf("invalid rate limit %v", p.RateLimit)
	}
	if p.RateBurst <= 0 {
		p.RateBurst = DefaultRateBurst
	}
	if p.CacheSize < 0 {
		p.CacheSize = 0
	}
	if p.CacheTTL <= 0 {
		p.CacheTTL = DefaultCacheTTL
	}
	if p.MaxUploadMB <= 0 {
		p.MaxUploadMB = DefaultMaxUploadMB
	}

	if p.ExportDir != "" {
		dir, err := filepath.Abs(p.ExportDir)
		if err != nil {
			return errors.Wrapf(err, "unable to resolve export directory %s", p.ExportDir)
		}
		p.ExportDir = dir
	}
	return nil
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}
