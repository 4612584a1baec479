package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Gateway  GatewayConfig
	Pipeline PipelineConfig
	Export   ExportConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr         string
	MaxUploadMB  int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// GatewayConfig holds hosted-model gateway configuration
type GatewayConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	VisionModel string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// PipelineConfig holds page-processing configuration
type PipelineConfig struct {
	Workers   int
	RenderDPI int
}

// ExportConfig holds export adapter configuration
type ExportConfig struct {
	OutputDir string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         getEnv("HTTP_ADDR", ":8080"),
			MaxUploadMB:  getEnvAsInt("MAX_UPLOAD_MB", 16),
			ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", 5*time.Minute),
		},
		Gateway: GatewayConfig{
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", "llama3-70b-8192"),
			VisionModel: getEnv("LLM_VISION_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 4000),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Pipeline: PipelineConfig{
			Workers:   getEnvAsInt("PIPELINE_WORKERS", 4),
			RenderDPI: getEnvAsInt("RENDER_DPI", 150),
		},
		Export: ExportConfig{
			OutputDir: getEnv("EXPORT_OUTPUT_DIR", "./extracted_data"),
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Gateway.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required", ErrInvalidInput)
	}
	if c.Gateway.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "LLM_BASE_URL is required", ErrInvalidInput)
	}
	if c.Pipeline.Workers < 1 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_WORKERS must be >= 1", ErrInvalidInput)
	}
	return nil
}
