package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	OCR    OCRConfig
	Oracle OracleConfig
	Batch  BatchConfig
	Split  SplitConfig
}

// OCRConfig holds OCR engine configuration
type OCRConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxImageMB  int
	Pdftoppm    string
	RenderDPI   int
	ThumbnailPx int
}

// OracleConfig holds classification oracle configuration
type OracleConfig struct {
	BaseURL         string
	APIKey          string
	Model           string
	Temperature     float32
	Timeout         time.Duration
	GeminiAPIKey    string
	GeminiModel     string
	LenientOptional bool
}

// BatchConfig holds batch scheduler configuration
type BatchConfig struct {
	ItemTimeout     time.Duration
	SequentialDelay time.Duration
	Concurrency     int
	ChunkDelay      time.Duration
}

// SplitConfig holds multi-page analyzer / splitter configuration
type SplitConfig struct {
	MaxUploadBytes int64
	BlankThreshold int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			BaseURL:     getEnv("OCR_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("OCR_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Model:       getEnv("OCR_MODEL", "gpt-4o-mini"),
			Timeout:     getEnvAsDuration("OCR_TIMEOUT", 25*time.Second),
			MaxImageMB:  getEnvAsInt("OCR_MAX_IMAGE_MB", 20),
			Pdftoppm:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
			RenderDPI:   getEnvAsInt("RENDER_DPI", 150),
			ThumbnailPx: getEnvAsInt("THUMBNAIL_PX", 240),
		},
		Oracle: OracleConfig{
			BaseURL:         getEnv("ORACLE_BASE_URL", "https://api.openai.com/v1"),
			APIKey:          getEnv("ORACLE_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Model:           getEnv("ORACLE_MODEL", "gpt-4o-mini"),
			Temperature:     getEnvAsFloat32("ORACLE_TEMPERATURE", 0.0),
			Timeout:         getEnvAsDuration("ORACLE_TIMEOUT", 45*time.Second),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			LenientOptional: getEnvAsBool("ORACLE_LENIENT", true),
		},
		Batch: BatchConfig{
			ItemTimeout:     getEnvAsDuration("BATCH_ITEM_TIMEOUT", 30*time.Second),
			SequentialDelay: getEnvAsDuration("BATCH_SEQUENTIAL_DELAY", 1500*time.Millisecond),
			Concurrency:     getEnvAsInt("BATCH_CONCURRENCY", 4),
			ChunkDelay:      getEnvAsDuration("BATCH_CHUNK_DELAY", 500*time.Millisecond),
		},
		Split: SplitConfig{
			MaxUploadBytes: getEnvAsInt64("SPLIT_MAX_UPLOAD_BYTES", 18*1024*1024),
			BlankThreshold: getEnvAsInt("SPLIT_BLANK_THRESHOLD", 20),
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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

// Validate validates the loaded configuration for the AI-backed paths.
func (c *Config) Validate() error {
	if c.Oracle.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "ORACLE_API_KEY or OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Batch.Concurrency <= 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_CONCURRENCY must be positive", ErrInvalidInput)
	}
	if c.Batch.ItemTimeout <= 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_ITEM_TIMEOUT must be positive", ErrInvalidInput)
	}
	return nil
}
