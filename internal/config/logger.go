package config

import (
	"strings"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. LOG_LEVEL=debug switches to the development encoder.
func NewLogger(level, name string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	switch strings.ToLower(level) {
	case "debug":
		logger, err = zap.NewDevelopment()
	default:
		cfg := zap.NewProductionConfig()
		if lvl, perr := zap.ParseAtomicLevel(level); perr == nil {
			cfg.Level = lvl
		}
		logger, err = cfg.Build()
	}
	if err != nil {
		return nil, err
	}
	return logger.Named(name), nil
}
