package config

import (
	"autoblog/internal/logger"
)

// Logger is the process-wide logger; InitLogger swaps it for the configured level.
var Logger logger.Logger = logger.Log

func InitLogger(cfg LoggingConfig) {
	logger.Init(cfg.Level)
	Logger = logger.Log
}
