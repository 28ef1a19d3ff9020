package logging

import (
	"io"
	"os"
	"strings"

	"whisperjson/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Configure sets up logrus on stderr, optionally teeing into a rotated file.
// Stdout is never used: it carries the JSON payload.
func Configure(cfg *config.Config, stderr io.Writer) (*logrus.Logger, error) {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := logrus.New()
	switch strings.ToLower(cfg.Logging.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	if lvl, err := logrus.ParseLevel(strings.ToLower(cfg.Logging.Level)); err == nil {
		logger.SetLevel(lvl)
	}
	if !cfg.Logging.File || cfg.Paths.LogPath == "" {
		logger.SetOutput(stderr)
		return logger, nil
	}
	if err := config.MustStatePaths(cfg); err != nil {
		return nil, err
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Paths.LogPath,
		MaxSize:    20, // megabytes
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   false,
	}
	logger.SetOutput(io.MultiWriter(stderr, rotator))
	return logger, nil
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
