package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Development bool
	// API configuration
	APIPort int
	// Backend configuration
	BackendURL string
	SocketURL  string
	// PageSize is how many markers one paginated fetch returns.
	PageSize int
	// DefaultAmount is the pre-filled draft amount in satoshis.
	DefaultAmount int64
	// Wallet configuration (optional; no wallet capability when empty)
	WalletURL    string
	WalletAPIKey string
	// Analytics configuration (optional; sink disabled when empty)
	AnalyticsURL string
	// DeepLinkPin is a marker id to select at startup, 0 for none.
	DeepLinkPin int64
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:   getEnvAsBool("DEVELOPMENT", false),
		APIPort:       getEnvAsInt("API_PORT", 6580),
		BackendURL:    getEnv("BACKEND_URL", "http://localhost:3030"),
		SocketURL:     getEnv("SOCKET_URL", "ws://localhost:3030/ws"),
		PageSize:      getEnvAsInt("LIMIT_MESSAGES", 10),
		DefaultAmount: getEnvAsInt64("DEFAULT_AMOUNT", 1440),
		WalletURL:     getEnv("WALLET_URL", ""),
		WalletAPIKey:  getEnv("WALLET_API_KEY", ""),
		AnalyticsURL:  getEnv("ANALYTICS_URL", ""),
		DeepLinkPin:   getEnvAsInt64("PIN", 0),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}

	if c.SocketURL == "" {
		return fmt.Errorf("SOCKET_URL is required")
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("LIMIT_MESSAGES must be positive")
	}

	if c.DefaultAmount <= 0 {
		return fmt.Errorf("DEFAULT_AMOUNT must be positive")
	}

	if c.WalletURL != "" && c.WalletAPIKey == "" {
		return fmt.Errorf("WALLET_API_KEY is required when WALLET_URL is set")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsInt64(name string, defaultValue int64) int64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
