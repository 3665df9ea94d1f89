package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/eduparse/internal/extract"
	"github.com/dgallion1/eduparse/internal/lookup"
)

type Config struct {
	Port string

	// Document locations
	FilesDirectory  string
	OutputDirectory string

	// Auth; empty disables bearer checks.
	ParserAPIKey string

	// Directory service
	DirectoryURL         string
	DirectoryInsecureTLS bool
	DirectoryTimeout     time.Duration
	LookupCacheTTL       time.Duration
	LookupRetries        int

	// Request limits
	MaxUploadBytes int64
	DefaultLimit   int

	// PDF
	PDFFallbackPdftotext bool

	// Student column layout (YAML); empty keeps the default positions.
	ColumnMapFile string

	// Observability
	LogFormat   string
	OTelEnabled bool
	StatsWindow time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8000"),

		FilesDirectory:  envOr("FILES_DIRECTORY", "files"),
		OutputDirectory: os.Getenv("OUTPUT_DIRECTORY"),

		ParserAPIKey: os.Getenv("PARSER_API_KEY"),

		DirectoryURL:         envOr("DIRECTORY_URL", lookup.DefaultBaseURL),
		DirectoryInsecureTLS: envBool("DIRECTORY_INSECURE_TLS", true),
		DirectoryTimeout:     envDuration("DIRECTORY_TIMEOUT", 30*time.Second),
		LookupCacheTTL:       envDuration("LOOKUP_CACHE_TTL", 0),
		LookupRetries:        envInt("LOOKUP_RETRIES", 2),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		DefaultLimit:   envInt("DEFAULT_LIMIT", extract.DefaultLimit),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		ColumnMapFile: os.Getenv("COLUMN_MAP_FILE"),

		LogFormat:   envOr("LOG_FORMAT", "json"),
		OTelEnabled: envBool("OTEL_ENABLED", false),
		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),
	}

	if cfg.DirectoryTimeout <= 0 {
		cfg.DirectoryTimeout = 30 * time.Second
	}
	if cfg.LookupCacheTTL < 0 {
		cfg.LookupCacheTTL = 0
	}
	if cfg.LookupRetries < 0 {
		cfg.LookupRetries = 0
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = extract.DefaultLimit
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.FilesDirectory == "" {
		return fmt.Errorf("FILES_DIRECTORY is required")
	}
	if c.DirectoryURL == "" {
		return fmt.Errorf("DIRECTORY_URL is required")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// StudentColumns returns the configured column map, or the defaults when
// no file is set.
func (c Config) StudentColumns() (extract.StudentColumns, error) {
	if c.ColumnMapFile == "" {
		return extract.DefaultStudentColumns(), nil
	}
	return extract.LoadStudentColumns(c.ColumnMapFile)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
