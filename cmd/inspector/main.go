package main

import (
	"os"

	"github.com/asterdex/astergate/internal/pkg/logger"
)

func main() {
	logger.InitWith("warn", "text", os.Stderr)
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("inspector failed", "error", err)
		os.Exit(1)
	}
}
