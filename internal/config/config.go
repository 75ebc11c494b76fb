// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/rwagpt/agent/internal/utils"
)

// Config holds application configuration.
// Every external collaborator is optional: an empty URL or key disables it and the
// component that depends on it falls back to its documented offline behavior.
type Config struct {
	DataDir        string // Base directory for databases and backups (always absolute)
	CatalogPath    string // Optional YAML catalog override; embedded catalog when empty
	LogLevel       string
	Port           int
	DevMode        bool
	DefaultChainID int
	AllowedOrigins []string

	SubgraphURL    string
	SubgraphAPIKey string
	OneInchAPIKey  string
	RealTAPIURL    string
	SupabaseURL    string
	SupabaseKey    string
	GeminiAPIKey   string
	GeminiModel    string

	ReconcileSchedule string
	BackupSchedule    string
	Backup            *BackupConfig
}

// BackupConfig holds the S3-compatible bucket used for ledger snapshots.
type BackupConfig struct {
	Bucket          string
	Endpoint        string // Custom endpoint for R2/MinIO; empty means AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int // 0 keeps every remote snapshot
}

// Enabled reports whether snapshots should be uploaded.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		CatalogPath:       getEnv("CATALOG_PATH", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Port:              getEnvAsInt("PORT", 8000),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		DefaultChainID:    getEnvAsInt("DEFAULT_CHAIN_ID", 80002), // Polygon Amoy testnet
		AllowedOrigins:    getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		SubgraphURL:       getEnv("SUBGRAPH_URL", ""),
		SubgraphAPIKey:    getEnv("SUBGRAPH_API_KEY", ""),
		OneInchAPIKey:     getEnv("ONEINCH_API_KEY", ""),
		RealTAPIURL:       getEnv("REALT_API_URL", ""),
		SupabaseURL:       getEnv("SUPABASE_URL", ""),
		SupabaseKey:       getEnv("SUPABASE_KEY", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@every 5m"),
		BackupSchedule:    getEnv("BACKUP_SCHEDULE", "@daily"),
		Backup: &BackupConfig{
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the values which cannot degrade gracefully are sane
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.DefaultChainID <= 0 {
		return fmt.Errorf("invalid default chain id: %d", c.DefaultChainID)
	}
	if c.Backup != nil && c.Backup.RetentionDays < 0 {
		return fmt.Errorf("invalid backup retention: %d", c.Backup.RetentionDays)
	}
	// Supabase needs both halves; half a config is treated as a typo rather than silently ignored
	if (c.SupabaseURL == "") != (c.SupabaseKey == "") {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY must be set together")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if values := utils.ParseCSV(os.Getenv(key)); values != nil {
		return values
	}
	return defaultValue
}
