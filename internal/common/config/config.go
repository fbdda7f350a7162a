package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Retriever  RetrieverConfig  `mapstructure:"retriever"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the listen address for the HTTP API.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatasetConfig points at the flat sales data file read once at startup.
type DatasetConfig struct {
	Path       string `mapstructure:"path"`
	DateFormat string `mapstructure:"date_format"`
}

// RetrieverConfig bounds the excerpt handed to the answer generator.
type RetrieverConfig struct {
	MaxRows      int `mapstructure:"max_rows"`
	MaxChars     int `mapstructure:"max_chars"`
	TrendMonths  int `mapstructure:"trend_months"`
	FallbackTopN int `mapstructure:"fallback_top_n"`
}

// OpenAIConfig holds settings for the hosted chat-completion service.
type OpenAIConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
}

// EvaluationConfig holds settings for the evaluation harness.
type EvaluationConfig struct {
	CasesPath         string  `mapstructure:"cases_path"`
	AccuracyThreshold float64 `mapstructure:"accuracy_threshold"` // percent, for the CLI exit code
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
