// Package logging builds the zap loggers shared by the server and commands.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger. "production" yields JSON output at info
// level; anything else yields a colored console logger at debug level.
func New(env string) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err = cfg.Build()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything, for tests and optional wiring.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
