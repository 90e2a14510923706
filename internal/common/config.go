package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Drive    DriveConfig
	Blob     BlobConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Naming   NamingConfig
	Log      LogConfig
}

// DatabaseConfig holds job-store configuration
type DatabaseConfig struct {
	Driver           string // "postgres" | "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds worker surface configuration
type ServerConfig struct {
	HTTPAddr     string
	GRPCAddr     string
	RunTimeout   time.Duration
	QueueWorkers int
	QueueSize    int
}

// DriveConfig holds file-store configuration
type DriveConfig struct {
	CredentialsFile string
	RateLimit       float64 // requests per second, 0 = unlimited
	RateBurst       int
}

// BlobConfig holds the cursor store configuration
type BlobConfig struct {
	Backend      string // "minio" | "fs"
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	UseSSL       bool
	Dir          string
	CursorObject string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Enabled       bool
	Provider      string // "vision" | "tesseract"
	DPI           int
	MinTextLength int
	TesseractLang string
	TessdataDir   string
	MaxPages      int
}

// LLMConfig holds model-related configuration
type LLMConfig struct {
	Model             string
	APIKey            string
	BaseURL           string
	Temperature       float32
	Timeout           time.Duration
	ContentLimit      int
	SchemaMode        string // "lenient" | "strict"
	GuardrailsEnabled bool
	Categories        []string
}

// NamingConfig holds rename behaviour
type NamingConfig struct {
	ProcessedMarker string
	AppendMarker    bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // "text" | "json"
	File   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:     getEnv("GRPC_ADDR", ":9090"),
			RunTimeout:   getEnvAsDuration("RUN_TIMEOUT", 15*time.Minute),
			QueueWorkers: getEnvAsInt("QUEUE_WORKERS", 2),
			QueueSize:    getEnvAsInt("QUEUE_SIZE", 64),
		},
		Drive: DriveConfig{
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			RateLimit:       getEnvAsFloat64("DRIVE_RATE_LIMIT", 10),
			RateBurst:       getEnvAsInt("DRIVE_RATE_BURST", 20),
		},
		Blob: BlobConfig{
			Backend:      getEnv("BLOB_BACKEND", "minio"),
			Endpoint:     getEnv("BLOB_ENDPOINT", ""),
			AccessKey:    getEnv("BLOB_ACCESS_KEY", ""),
			SecretKey:    getEnv("BLOB_SECRET_KEY", ""),
			Bucket:       getEnv("BLOB_BUCKET", ""),
			Region:       getEnv("BLOB_REGION", ""),
			UseSSL:       getEnvAsBool("BLOB_USE_SSL", true),
			Dir:          getEnv("BLOB_DIR", "./state"),
			CursorObject: getEnv("CURSOR_OBJECT", "drive_changes_token.json"),
		},
		OCR: OCRConfig{
			Enabled:       getEnvAsBool("OCR_ENABLED", true),
			Provider:      getEnv("OCR_PROVIDER", "vision"),
			DPI:           getEnvAsInt("OCR_DPI", 200),
			MinTextLength: getEnvAsInt("OCR_MIN_TEXT", 100),
			TesseractLang: getEnv("TESSERACT_LANG", "spa+eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		LLM: LLMConfig{
			Model:             getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:            getEnv("OPENAI_API_KEY", ""),
			BaseURL:           getEnv("OPENAI_BASE_URL", ""),
			Temperature:       getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:           getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			ContentLimit:      getEnvAsInt("LLM_CONTENT_LIMIT", 8000),
			SchemaMode:        getEnv("LLM_SCHEMA_MODE", "lenient"),
			GuardrailsEnabled: getEnvAsBool("GUARDRAILS_ENABLED", false),
			Categories:        getEnvAsList("LLM_CATEGORIES", nil),
		},
		Naming: NamingConfig{
			ProcessedMarker: getEnv("PROCESSED_MARKER", "DOCPROCESADO"),
			AppendMarker:    getEnvAsBool("APPEND_MARKER", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
			File:   getEnv("LOG_FILE", ""),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration for the worker process
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrConfig)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrConfig)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrConfig)
	}
	switch c.LLM.SchemaMode {
	case "lenient", "strict":
	default:
		return NewAppError("CONFIG_ERROR", "LLM_SCHEMA_MODE must be lenient or strict", ErrConfig)
	}
	switch c.Blob.Backend {
	case "minio":
		if c.Blob.Endpoint == "" || c.Blob.Bucket == "" {
			return NewAppError("CONFIG_ERROR", "BLOB_ENDPOINT and BLOB_BUCKET are required for the minio backend", ErrConfig)
		}
	case "fs":
		if c.Blob.Dir == "" {
			return NewAppError("CONFIG_ERROR", "BLOB_DIR is required for the fs backend", ErrConfig)
		}
	default:
		return NewAppError("CONFIG_ERROR", "BLOB_BACKEND must be minio or fs", ErrConfig)
	}
	if c.OCR.Enabled {
		switch c.OCR.Provider {
		case "vision", "tesseract":
		default:
			return NewAppError("CONFIG_ERROR", "OCR_PROVIDER must be vision or tesseract", ErrConfig)
		}
	}
	if c.Naming.ProcessedMarker == "" {
		return NewAppError("CONFIG_ERROR", "PROCESSED_MARKER must not be empty", ErrConfig)
	}
	return nil
}
