package loadgen

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/moodtune/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends logs to stdout and, when logFile is set, to that file.
func SetupLogging(logFile string) error {
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, file))
	}
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`MoodTune Load Tool
==================

Drives concurrent recommendation traffic against a running MoodTune service
and checks that every subject's history matches what was accepted.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string        Base URL of the service (default "http://localhost:8080")
  -requests int      Number of recommendation requests (default 1000)
  -subjects int      Number of distinct subjects (default 20)
  -repeat int        Replay every Nth request to exercise idempotency (default 10, 0 disables)
  -workers int       Number of concurrent workers (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 30s)
  -output string     Write generated requests to this JSON file
  -log string        Also write logs to this file
  -verbose           Log individual failures
  -help              Show this help message
`)
}
