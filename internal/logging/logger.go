package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus.Logger with a component name and an optional
// correlation ID carried across WithField/WithFields derivations.
type Logger struct {
	*logrus.Logger
	correlationID string
	component     string
}

// Fields is a type alias for logrus.Fields.
type Fields = logrus.Fields

// Config controls level, format, and output destinations for a logger.
// FilePath/MaxFileSize/BackupCount mirror the orchestrator's log_level
// and related options from the key=value config file.
type Config struct {
	Level          string
	Format         string // "text" or "json"
	ConsoleEnabled bool
	FileEnabled    bool
	FilePath       string
	MaxFileSize    int // bytes
	BackupCount    int
}

// correlationIDKey is the context key correlation IDs are stored under.
type correlationIDKey struct{}

var (
	factoryMu  sync.RWMutex
	factoryCfg = Config{Level: "info", Format: "text", ConsoleEnabled: true}
)

// Configure sets the configuration every subsequently-created logger
// inherits. Safe to call again after a config reload.
func Configure(cfg Config) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factoryCfg = cfg
}

// New creates a logger for the given component using the current global
// configuration (set via Configure, or "info"/text/console by default).
func New(component string) *Logger {
	factoryMu.RLock()
	cfg := factoryCfg
	factoryMu.RUnlock()

	l := &Logger{Logger: logrus.New(), component: component}
	applyConfig(l, cfg)
	return l
}

func applyConfig(l *Logger, cfg Config) {
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.FileEnabled && cfg.FilePath != "" {
		if err := attachFileSink(l, cfg); err != nil {
			l.SetOutput(os.Stdout)
			l.SetFormatter(textFormatter())
			l.WithError(err).Warn("falling back to console logging: file sink unavailable")
			return
		}
	}
	if cfg.ConsoleEnabled && !cfg.FileEnabled {
		l.SetOutput(os.Stdout)
	}
	l.SetFormatter(formatterFor(cfg.Format))
}

func attachFileSink(l *Logger, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	sink := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    maxInt(1, cfg.MaxFileSize/(1024*1024)),
		MaxBackups: cfg.BackupCount,
		MaxAge:     30,
		Compress:   true,
	}
	if cfg.ConsoleEnabled {
		l.SetOutput(io.MultiWriter(os.Stdout, sink))
	} else {
		l.SetOutput(sink)
	}
	return nil
}

func formatterFor(format string) logrus.Formatter {
	if strings.EqualFold(format, "json") {
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	}
	return textFormatter()
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// WithCorrelationID returns a derived logger tagging entries with id.
func (l *Logger) WithCorrelationID(id string) *Logger {
	return &Logger{Logger: l.Logger, correlationID: id, component: l.component}
}

// WithField returns a logrus entry with component/correlation context
// plus the supplied field attached.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.entry().WithField(key, value)
}

// WithFields returns a logrus entry with component/correlation context
// plus the supplied fields attached.
func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	return l.entry().WithFields(fields)
}

// WithError returns a logrus entry with the error attached.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.entry().WithError(err)
}

func (l *Logger) entry() *logrus.Entry {
	e := l.Logger.WithField("component", l.component)
	if l.correlationID != "" {
		e = e.WithField("correlation_id", l.correlationID)
	}
	return e
}

// WithContext returns a logrus entry carrying the correlation ID found
// in ctx (if any) in addition to this logger's own component/correlation
// fields.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	e := l.entry()
	if id := CorrelationIDFromContext(ctx); id != "" {
		e = e.WithField("correlation_id", id)
	}
	return e
}

// NewCorrelationID returns a fresh UUIDv4 correlation id.
func NewCorrelationID() string {
	return uuid.New().String()
}

// ContextWithCorrelationID returns a context carrying id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext extracts a correlation id set by
// ContextWithCorrelationID, or "" if none is present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}
