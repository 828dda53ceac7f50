// Package config provides configuration management for the trendlab tools.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var supportedTimeframes = map[string]bool{
	"1m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "4h": true, "1d": true, "1w": true,
}

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateCrossField checks constraints spanning multiple fields
func validateCrossField(cfg *Config) error {
	if !supportedTimeframes[cfg.Data.Timeframe] {
		return fmt.Errorf("unsupported timeframe %q", cfg.Data.Timeframe)
	}
	for _, pair := range cfg.Strategy.Variations {
		if pair.Fast >= pair.Slow {
			return fmt.Errorf("variation fast span %d must be shorter than slow span %d", pair.Fast, pair.Slow)
		}
	}
	for _, symbol := range cfg.Data.Symbols {
		if strings.TrimSpace(symbol) == "" {
			return fmt.Errorf("empty symbol in data.symbols")
		}
	}
	return nil
}

func formatValidationErrors(errs validator.ValidationErrors) error {
	messages := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		messages = append(messages, fmt.Sprintf("%s failed %q validation", fieldErr.Namespace(), fieldErr.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}
