package api

import (
	"fmt"
	"net/url"
	"time"

	"mvam/internal/config"
)

// APIAdapterConfig holds configuration for the forms API adapter
type APIAdapterConfig struct {
	BaseURL    string        `json:"base_url"`
	AuthScheme string        `json:"auth_scheme"` // "Token" for KoBo, "Bearer" for gateways in front of it
	AuthToken  string        `json:"auth_token"`
	Timeout    time.Duration `json:"timeout"`
	UserAgent  string        `json:"user_agent"`
}

// DefaultAPIAdapterConfig returns defaults for the humanitarian KoBo instance
func DefaultAPIAdapterConfig() *APIAdapterConfig {
	return &APIAdapterConfig{
		BaseURL:    "https://kc.humanitarianresponse.info",
		AuthScheme: "Token",
		Timeout:    60 * time.Second,
		UserAgent:  "mvam-etl",
	}
}

// ConfigFromKobo builds the adapter config from the application settings
func ConfigFromKobo(kobo config.KoboConfig) *APIAdapterConfig {
	cfg := DefaultAPIAdapterConfig()
	cfg.AuthToken = kobo.Token
	if kobo.BaseURL != "" {
		cfg.BaseURL = kobo.BaseURL
	}
	if kobo.AuthScheme != "" {
		cfg.AuthScheme = kobo.AuthScheme
	}
	if kobo.Timeout > 0 {
		cfg.Timeout = kobo.Timeout
	}
	return cfg
}

// Validate checks if the configuration is valid
func (c *APIAdapterConfig) Validate() error {
	if c.AuthToken == "" {
		return &ValidationError{Field: "AuthToken", Message: "is required"}
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return &ValidationError{Field: "BaseURL", Message: err.Error()}
	}
	if c.Timeout <= 0 {
		return &ValidationError{Field: "Timeout", Message: "must be positive"}
	}
	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}
