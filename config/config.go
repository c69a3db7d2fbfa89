package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Storage drivers supported for the case snapshot and counter resources
const (
	StorageDriverFile     = "file"
	StorageDriverSQLite   = "sqlite"
	StorageDriverLibSQL   = "libsql"
	StorageDriverPostgres = "postgres"
	StorageDriverR2       = "r2"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Environment string
	// Storage
	StorageDriver    string
	DataDir          string // Root directory for the file driver
	DBPath           string // SQLite file for the sqlite driver
	TursoDatabaseURL string
	TursoAuthToken   string
	PostgresDSN      string
	// Cloudflare R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2Prefix          string
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, notifications are logged to console instead of sent
	// Other
	Tenants         []string // Tenants visited by background jobs
	DefaultCurrency string
	ChromePath      string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverFile)),
		DataDir:           getEnv("DATA_DIR", "data"),
		DBPath:            getEnv("DB_PATH", "data/legal.db"),
		TursoDatabaseURL:  getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken:    getEnv("TURSO_AUTH_TOKEN", ""),
		PostgresDSN:       getEnv("POSTGRES_DSN", ""),
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2Prefix:          getEnv("R2_PREFIX", "legal"),
		ResendAPIKey:      getEnv("RESEND_API_KEY", ""),
		EmailFrom:         getEnv("EMAIL_FROM", "legal@ain-oman.com"),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "Ain Oman Legal"),
		EmailTestMode:     getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		Tenants:           getEnvList("TENANTS", "default"),
		DefaultCurrency:   getEnv("DEFAULT_CURRENCY", "OMR"),
		ChromePath:        getEnv("CHROME_PATH", ""),
	}
}

// IsProduction reports whether the app runs with ENVIRONMENT=production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// R2Configured returns true if every R2 credential is present
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		if defaultValue != "" {
			log.Printf("Using default value for %s: %s", key, defaultValue)
		}
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// getEnvList splits a comma-separated variable, dropping empty items
func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
