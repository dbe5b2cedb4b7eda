package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/ChorusOne/anthem-sub001/internal/domain"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL string
	HistoryDir  string

	Network      domain.Network
	FiatCurrency string
	DisplayFiat  bool

	ExportDir       string
	ExportInterval  time.Duration
	ExportAddresses []string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	SheetsID              string
	GoogleCredentialsJSON string
}

// MinIOEnabled reports whether object storage uploads are configured.
func (c Config) MinIOEnabled() bool {
	return c.MinIOEndpoint != ""
}

// SheetsEnabled reports whether Google Sheets publishing is configured.
func (c Config) SheetsEnabled() bool {
	return c.SheetsID != "" && c.GoogleCredentialsJSON != ""
}

// Load reads configuration from environment variables with sensible defaults.
// Variables from a .env file in the working directory are loaded first but never
// override variables already set in the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return Config{
		DatabaseURL: envOrDefault("DATABASE_URL", ""),
		HistoryDir:  envOrDefault("HISTORY_DIR", "data"),
		Network: domain.Network{
			Name:               envOrDefault("NETWORK_NAME", "COSMOS"),
			Denom:              envOrDefault("NETWORK_DENOM", "ATOM"),
			Descriptor:         envOrDefault("NETWORK_DESCRIPTOR", "cosmoshub"),
			DenominationSize:   envOrDefaultInt64("DENOMINATION_SIZE", 1_000_000),
			SupportsFiatPrices: envOrDefaultBool("FIAT_SUPPORTED", true),
		},
		FiatCurrency:          strings.ToUpper(envOrDefault("FIAT_CURRENCY", "USD")),
		DisplayFiat:           envOrDefaultBool("DISPLAY_FIAT", false),
		ExportDir:             envOrDefault("EXPORT_DIR", "exports"),
		ExportInterval:        envOrDefaultDuration("EXPORT_INTERVAL", 24*time.Hour),
		ExportAddresses:       envList("EXPORT_ADDRESSES"),
		MinIOEndpoint:         envOrDefault("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        envOrDefault("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        envOrDefault("MINIO_SECRET_KEY", ""),
		MinIOBucket:           envOrDefault("MINIO_BUCKET", "anthem-exports"),
		MinIOUseSSL:           envOrDefaultBool("MINIO_USE_SSL", false),
		SheetsID:              envOrDefault("SHEETS_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping blanks and duplicates.
func envList(key string) []string {
	parts := strings.Split(os.Getenv(key), ",")
	items := lo.FilterMap(parts, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	})
	return lo.Uniq(items)
}

func envOrDefaultInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return b
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
