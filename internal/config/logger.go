package config

import "go.uber.org/zap"

// NewLogger builds the process-wide zap logger. APP_ENV=production picks
// the JSON production config, anything else the human-readable one.
func NewLogger() (*zap.Logger, error) {
	if getEnv("APP_ENV", "development") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
