// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	NewsAPI    NewsAPIConfig
	GoogleNews GoogleNewsConfig
	LLM        LLMConfig
	SMTP       SMTPConfig
	Pipeline   PipelineConfig
	Auth       AuthConfig
	Worker     WorkerConfig
	LogLevel   string
}

// DBConfig holds PostgreSQL connection parameters for the optional run
// history table. An empty Host disables it.
type DBConfig struct {
	Host    string
	Port    int
	User    string
	Pass    string
	DBName  string
	SSLMode string
}

// Enabled reports whether a database host was configured.
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// DSN returns a PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Pass +
		"@" + c.Host + ":" + strconv.Itoa(c.Port) +
		"/" + c.DBName + "?sslmode=" + c.SSLMode
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port string
	Host string
}

// Addr returns the full listen address (host:port).
func (c ServerConfig) Addr() string {
	return c.Host + c.Port
}

// NewsAPIConfig holds the newsapi.org search parameters.
type NewsAPIConfig struct {
	BaseURL  string
	APIKey   string
	Language string
	PageSize int
}

// GoogleNewsConfig holds the Google News RSS search parameters.
type GoogleNewsConfig struct {
	BaseURL           string
	Locale            string
	Region            string
	RedirectHosts     []string
	// NonPublisherHosts match by domain suffix. A resolved link landing on
	// one of them is not a publisher article.
	NonPublisherHosts []string
}

// DefaultNonPublisherHosts are the Google-owned domains a redirect can end
// on without reaching the publisher.
var DefaultNonPublisherHosts = []string{"google.com", "gstatic.com", "googleusercontent.com", "youtube.com"}

// LLMConfig selects and configures the LLM provider used for summaries and
// sentiment classification.
type LLMConfig struct {
	Provider      string // ollama | openai | gemini | anthropic
	Model         string
	APIKey        string
	OllamaHost    string
	OpenAIBaseURL string
	MaxTokens     int
	Timeout       time.Duration
}

// SMTPConfig holds the mail submission parameters.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether sender credentials are present.
func (c SMTPConfig) Configured() bool {
	return c.Username != "" && c.Password != ""
}

// PipelineConfig tunes the report pipeline.
type PipelineConfig struct {
	Workers         int
	ResolveTimeout  time.Duration
	ExtractTimeout  time.Duration
	MinBodyLength   int
	DefaultDaysAgo  int
	UserAgent       string
	ExportFormat    string // txt | pdf
	MaxArticleChars int
}

// AuthConfig enables HTTP basic auth on the UI and API when both fields are
// set. PasswordHash is a bcrypt hash.
type AuthConfig struct {
	Username     string
	PasswordHash string
}

// Enabled reports whether basic auth is configured.
func (c AuthConfig) Enabled() bool {
	return c.Username != "" && c.PasswordHash != ""
}

// WorkerConfig holds scheduled-report parameters.
type WorkerConfig struct {
	WatchlistPath string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Port: envOr("SERVER_PORT", ":8080"),
			Host: envOr("SERVER_HOST", ""),
		},
		DB: DBConfig{
			Host:    envOr("DB_HOST", ""),
			Port:    envOrInt("DB_PORT", 5432),
			User:    envOr("DB_USER", "mentionwatch"),
			Pass:    envOr("DB_PASS", "mentionwatch"),
			DBName:  envOr("DB_NAME", "mentionwatch"),
			SSLMode: envOr("DB_SSLMODE", "disable"),
		},
		NewsAPI: NewsAPIConfig{
			BaseURL:  envOr("NEWSAPI_BASE_URL", "https://newsapi.org/v2"),
			APIKey:   envOr("NEWSAPI_KEY", ""),
			Language: envOr("NEWSAPI_LANGUAGE", "en"),
			PageSize: envOrInt("NEWSAPI_PAGE_SIZE", 40),
		},
		GoogleNews: GoogleNewsConfig{
			BaseURL:           envOr("GOOGLE_NEWS_BASE_URL", "https://news.google.com/rss/search"),
			Locale:            envOr("GOOGLE_NEWS_LOCALE", "en-US"),
			Region:            envOr("GOOGLE_NEWS_REGION", "US"),
			RedirectHosts:     envOrList("GOOGLE_NEWS_REDIRECT_HOSTS", []string{"news.google.com"}),
			NonPublisherHosts: envOrList("GOOGLE_NEWS_NON_PUBLISHER_HOSTS", DefaultNonPublisherHosts),
		},
		LLM: LLMConfig{
			Provider:      strings.ToLower(envOr("LLM_PROVIDER", "openai")),
			Model:         envOr("LLM_MODEL", ""),
			APIKey:        envOr("LLM_API_KEY", os.Getenv("OPENAI_API_KEY")),
			OllamaHost:    envOr("OLLAMA_HOST", "http://localhost:11434"),
			OpenAIBaseURL: envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			MaxTokens:     envOrInt("LLM_MAX_TOKENS", 400),
			Timeout:       envOrDuration("LLM_TIMEOUT", 60*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     envOr("SMTP_HOST", "smtp.gmail.com"),
			Port:     envOrInt("SMTP_PORT", 587),
			Username: envOr("SENDER_EMAIL", ""),
			Password: envOr("SENDER_PASSWORD", ""),
			From:     envOr("SMTP_FROM", os.Getenv("SENDER_EMAIL")),
		},
		Pipeline: PipelineConfig{
			Workers:         envOrInt("PIPELINE_WORKERS", 4),
			ResolveTimeout:  envOrDuration("RESOLVE_TIMEOUT", 15*time.Second),
			ExtractTimeout:  envOrDuration("EXTRACT_TIMEOUT", 20*time.Second),
			MinBodyLength:   envOrInt("MIN_BODY_LENGTH", 250),
			DefaultDaysAgo:  envOrInt("DEFAULT_DAYS_AGO", 1),
			UserAgent:       envOr("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"),
			ExportFormat:    strings.ToLower(envOr("EXPORT_FORMAT", "pdf")),
			MaxArticleChars: envOrInt("MAX_ARTICLE_CHARS", 12000),
		},
		Auth: AuthConfig{
			Username:     envOr("AUTH_USER", ""),
			PasswordHash: envOr("AUTH_PASSWORD_HASH", ""),
		},
		Worker: WorkerConfig{
			WatchlistPath: envOr("WATCHLIST_PATH", "configs/watchlist.yaml"),
		},
		LogLevel: envOr("LOG_LEVEL", "info"),
	}
}

// Validate checks the settings every entry point needs before running the
// pipeline.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "ollama":
	case "openai", "gemini", "anthropic":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("config: LLM_API_KEY is required for provider %q", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("config: PIPELINE_WORKERS must be at least 1")
	}
	if c.Pipeline.ExportFormat != "txt" && c.Pipeline.ExportFormat != "pdf" {
		return fmt.Errorf("config: EXPORT_FORMAT must be 'txt' or 'pdf'")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envOrList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
