package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sparkcoin-backend/internal/config"
)

// New creates a zap logger from the log configuration.
func New(cfg config.Log) (*zap.Logger, error) {
	var zc zap.Config

	if cfg.Level == "debug" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	} else {
		zc.Encoding = "json"
	}

	zc.EncoderConfig.LevelKey = "level"
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.MessageKey = "message"

	return zc.Build()
}
