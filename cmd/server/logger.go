package main

import (
	"github.com/septivank/smart-meter-api/internal/config"
	"github.com/septivank/smart-meter-api/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
