// Package logging configures the application log. The TUI owns the terminal,
// so logs go to a file rather than stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultPath places the log under $XDG_STATE_HOME, falling back to
// ~/.local/state and finally the system temp dir.
func DefaultPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "beatcheck", "beatcheck.log")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "beatcheck", "beatcheck.log")
	}
	return filepath.Join(os.TempDir(), "beatcheck.log")
}

// New opens a file-backed logger at path. The caller must call the returned
// close function before exit to flush buffered entries.
func New(path string) (*zap.Logger, func(), error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig = encoderCfg
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// Nop returns a logger that discards everything, for tests and for code paths
// that run before the config is loaded.
func Nop() *zap.Logger {
	return zap.NewNop()
}
