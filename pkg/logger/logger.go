// Package logger builds the structured loggers used across the agent. Loggers
// are constructed once in main and injected into each component; no package
// level singleton is kept.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config describes how the application logger should behave.
type Config struct {
	Level       string      `json:"level" yaml:"level"`
	Format      string      `json:"format" yaml:"format"`
	OutputPaths []string    `json:"output_paths" yaml:"output_paths"`
	Audit       AuditConfig `json:"audit" yaml:"audit"`
}

// AuditConfig controls where submitted transactions are journaled.
type AuditConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// Logger bundles the application logger with the audit logger and the files
// both of them write to.
type Logger struct {
	base    *slog.Logger
	audit   *slog.Logger
	closers []io.Closer
}

// New configures a logger according to cfg.
func New(cfg Config) (*Logger, error) {
	l := &Logger{}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level), AddSource: true}

	handler, err := l.buildHandler(cfg.Format, cfg.OutputPaths, opts)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	l.base = slog.New(handler)
	l.audit = l.base

	if cfg.Audit.Enabled {
		audit, err := l.buildAuditLogger(cfg.Audit)
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		l.audit = audit
	}
	return l, nil
}

// Discard returns a logger that drops every record. Components fall back to
// it when no logger is injected.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// L returns the application logger.
func (l *Logger) L() *slog.Logger {
	if l == nil || l.base == nil {
		return Discard()
	}
	return l.base
}

// Audit returns the audit logger, which is the application logger when no
// dedicated audit file is configured.
func (l *Logger) Audit() *slog.Logger {
	if l == nil || l.audit == nil {
		return l.L()
	}
	return l.audit
}

// Named returns a child logger tagged with the component name.
func (l *Logger) Named(name string) *slog.Logger {
	return l.L().With(slog.String("component", name))
}

// Close flushes and closes every file opened by the logger.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	var err error
	for _, closer := range l.closers {
		err = errors.Join(err, closer.Close())
	}
	l.closers = nil
	return err
}

func (l *Logger) buildHandler(format string, outputs []string, opts *slog.HandlerOptions) (slog.Handler, error) {
	writers := make([]io.Writer, 0, len(outputs))
	for _, out := range outputs {
		writer, closer, err := openWriter(out)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			l.closers = append(l.closers, closer)
		}
		writers = append(writers, writer)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	writer := writers[0]
	if len(writers) > 1 {
		writer = io.MultiWriter(writers...)
	}

	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(writer, opts), nil
	}
	return slog.NewJSONHandler(writer, opts), nil
}

func (l *Logger) buildAuditLogger(cfg AuditConfig) (*slog.Logger, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("audit log path cannot be empty when enabled")
	}
	writer, err := newRollingFile(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	if err != nil {
		return nil, err
	}
	l.closers = append(l.closers, writer)
	return slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo})), nil
}

func openWriter(path string) (io.Writer, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(path)) {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, file, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
