package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration (optional audit persistence)
	Database DatabaseConfig

	// LLM backend configurations
	Bedrock BedrockConfig
	OpenAI  OpenAIConfig

	// External service configurations
	FinData FinDataConfig
	Alpaca  AlpacaConfig

	// State store configuration
	StateStore StateStoreConfig

	// Pipeline configuration
	Pipeline PipelineConfig

	// Signal classification thresholds
	Signal SignalConfig

	// Risk limit configuration
	Risk RiskConfig

	// HTTP configuration (state store service)
	HTTP HTTPConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// BedrockConfig holds AWS Bedrock configuration
type BedrockConfig struct {
	Region  string
	ModelID string
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// FinDataConfig holds financial data provider configuration
type FinDataConfig struct {
	APIKey  string
	BaseURL string
}

// AlpacaConfig holds Alpaca market data configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// StateStoreConfig holds state store location configuration. When URL is
// empty the pipeline uses an in-process file store at FilePath.
type StateStoreConfig struct {
	URL      string
	FilePath string
}

// PipelineConfig holds pipeline orchestration configuration
type PipelineConfig struct {
	LLMTimeoutSeconds  int
	DataTimeoutSeconds int
	ConcurrencyLimit   int
	PersonaConfigPath  string
}

// SignalConfig holds the score-ratio thresholds for signal classification.
// These are deliberate constants with no adaptive behavior; they are exposed
// here rather than hard-coded at call sites.
type SignalConfig struct {
	BullishThreshold float64
	BearishThreshold float64
}

// RiskConfig holds position-limit configuration
type RiskConfig struct {
	// PositionLimitPercent is the concentration cap as a fraction of total
	// portfolio value (0-1).
	PositionLimitPercent float64
}

// HTTPConfig holds state store HTTP server configuration
type HTTPConfig struct {
	Addr string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Bedrock: BedrockConfig{
			Region:  os.Getenv("AWS_REGION"),
			ModelID: os.Getenv("BEDROCK_MODEL_ID"),
		},
		OpenAI: OpenAIConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			Model:     getEnvString("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvInt("OPENAI_MAX_TOKENS", 4096),
		},
		FinData: FinDataConfig{
			APIKey:  os.Getenv("FINDATA_API_KEY"),
			BaseURL: getEnvString("FINDATA_BASE_URL", "https://api.financialdatasets.ai"),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			BaseURL:   getEnvString("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
		},
		StateStore: StateStoreConfig{
			URL:      os.Getenv("STATE_STORE_URL"),
			FilePath: getEnvString("STATE_STORE_FILE", "agent_state.json"),
		},
		Pipeline: PipelineConfig{
			LLMTimeoutSeconds:  getEnvInt("PIPELINE_LLM_TIMEOUT_SECONDS", 60),
			DataTimeoutSeconds: getEnvInt("PIPELINE_DATA_TIMEOUT_SECONDS", 30),
			ConcurrencyLimit:   getEnvInt("PIPELINE_CONCURRENCY_LIMIT", 1),
			PersonaConfigPath:  os.Getenv("PERSONA_CONFIG_PATH"),
		},
		Signal: SignalConfig{
			BullishThreshold: getEnvFloat("SIGNAL_BULLISH_THRESHOLD", 0.7),
			BearishThreshold: getEnvFloat("SIGNAL_BEARISH_THRESHOLD", 0.3),
		},
		Risk: RiskConfig{
			PositionLimitPercent: getEnvFloat("RISK_POSITION_LIMIT_PERCENT", 0.20),
		},
		HTTP: HTTPConfig{
			Addr: getEnvString("STATE_STORE_ADDR", ":8391"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Signal.BullishThreshold <= 0 || c.Signal.BullishThreshold > 1 {
		return fmt.Errorf("SIGNAL_BULLISH_THRESHOLD must be in (0, 1], got %.2f", c.Signal.BullishThreshold)
	}
	if c.Signal.BearishThreshold < 0 || c.Signal.BearishThreshold >= 1 {
		return fmt.Errorf("SIGNAL_BEARISH_THRESHOLD must be in [0, 1), got %.2f", c.Signal.BearishThreshold)
	}
	if c.Signal.BearishThreshold >= c.Signal.BullishThreshold {
		return fmt.Errorf("bearish threshold %.2f must be below bullish threshold %.2f",
			c.Signal.BearishThreshold, c.Signal.BullishThreshold)
	}
	if c.Risk.PositionLimitPercent <= 0 || c.Risk.PositionLimitPercent > 1 {
		return fmt.Errorf("RISK_POSITION_LIMIT_PERCENT must be in (0, 1], got %.2f", c.Risk.PositionLimitPercent)
	}
	if c.Pipeline.LLMTimeoutSeconds <= 0 {
		return fmt.Errorf("PIPELINE_LLM_TIMEOUT_SECONDS must be positive, got %d", c.Pipeline.LLMTimeoutSeconds)
	}
	if c.Pipeline.DataTimeoutSeconds <= 0 {
		return fmt.Errorf("PIPELINE_DATA_TIMEOUT_SECONDS must be positive, got %d", c.Pipeline.DataTimeoutSeconds)
	}
	if c.Pipeline.ConcurrencyLimit <= 0 {
		return fmt.Errorf("PIPELINE_CONCURRENCY_LIMIT must be positive, got %d", c.Pipeline.ConcurrencyLimit)
	}
	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasBedrock returns true if AWS Bedrock configuration is available
func (c *Config) HasBedrock() bool {
	return c.Bedrock.Region != "" && c.Bedrock.ModelID != ""
}

// HasOpenAI returns true if OpenAI configuration is available
func (c *Config) HasOpenAI() bool {
	return c.OpenAI.APIKey != ""
}

// HasFinData returns true if the financial data provider is configured
func (c *Config) HasFinData() bool {
	return c.FinData.APIKey != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 4096,
		},
		FinData: FinDataConfig{
			BaseURL: "https://api.financialdatasets.ai",
		},
		StateStore: StateStoreConfig{
			FilePath: "agent_state.json",
		},
		Pipeline: PipelineConfig{
			LLMTimeoutSeconds:  60,
			DataTimeoutSeconds: 30,
			ConcurrencyLimit:   1,
		},
		Signal: SignalConfig{
			BullishThreshold: 0.7,
			BearishThreshold: 0.3,
		},
		Risk: RiskConfig{
			PositionLimitPercent: 0.20,
		},
		HTTP: HTTPConfig{
			Addr: ":8391",
		},
	}
}
