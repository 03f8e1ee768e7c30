// Package logger builds the structured logger shared by all components.
//
// Terminal progress output is printed directly by the CLI; the logger
// carries the detailed trail. By default that trail goes to a file so
// the terminal stays readable, and verbose mode echoes it to stderr.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Config controls where log lines go and how much detail they carry.
type Config struct {
	Verbose bool   // Echo log lines to stderr and lower the level to debug
	File    string // Append log lines to this file, "" disables
}

// New builds a logger according to cfg. The returned cleanup closes the
// log file and is safe to call when no file was opened.
func New(cfg Config) (*logrus.Logger, func(), error) {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
		DisableColors:   true,
	})

	cleanup := func() {}
	var writers []io.Writer

	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //#nosec G304 -- log path comes from user configuration
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create log file: %w", err)
		}
		writers = append(writers, f)
		cleanup = func() { f.Close() }
	}
	if cfg.Verbose {
		writers = append(writers, os.Stderr)
	}

	switch len(writers) {
	case 0:
		log.SetOutput(io.Discard)
	case 1:
		log.SetOutput(writers[0])
	default:
		log.SetOutput(io.MultiWriter(writers...))
	}

	return log, cleanup, nil
}
