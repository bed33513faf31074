package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Config controls how component loggers are built.
type Config struct {
	Level  string
	Format string // "text" or "json"
	Output io.Writer
}

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
	current   = Config{Level: "info", Format: "text"}
	base      *logrus.Logger
)

// Configure replaces the shared logger configuration. Loggers handed out
// earlier keep pointing at the same underlying logger and pick up the change.
func Configure(cfg Config) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	current = cfg
	if base != nil {
		apply(base, cfg)
	}
}

// NewLogger returns the logger for a component, creating it on first use.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}
	if base == nil {
		base = logrus.New()
		apply(base, current)
	}

	entry := base.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Discard returns a logger that drops everything, for tests and fallbacks.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func apply(logger *logrus.Logger, cfg Config) {
	levelStr := cfg.Level
	if env := os.Getenv("AI_EDITOR_LOG_LEVEL"); env != "" {
		levelStr = env
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	out := cfg.Output
	if out == nil {
		// stdout belongs to the MCP stdio transport
		out = os.Stderr
	}
	logger.SetOutput(out)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   isTerminal(out),
			DisableColors: !isTerminal(out),
		})
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
