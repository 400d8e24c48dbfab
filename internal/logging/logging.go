// Package logging builds the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ls-lnb/tg-bookmarks/internal/config"
)

// New builds a logger from cfg. When cfg.File is set, output goes to a
// size-rotated file. The returned closer releases that file and is a
// no-op otherwise.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	var w io.WriteCloser = nopCloser{os.Stderr}
	if cfg.File != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}

	logger, err := NewWithWriter(cfg, w)
	if err != nil {
		w.Close()
		return nil, nil, err
	}
	return logger, w, nil
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(handler), nil
}

// ParseLevel accepts debug, info, warn and error in any case. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
