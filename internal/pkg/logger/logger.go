// Package logger builds the process-wide zap logger.
package logger

import (
	"github.com/buildcontrol/backend/internal/config"
	"go.uber.org/zap"
)

// New returns a human-readable logger in development and a JSON logger
// everywhere else.
func New(env string) (*zap.Logger, error) {
	if env == config.EnvDevelopment {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
