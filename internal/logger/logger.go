// Package logger owns the process-wide zerolog logger. Diagnostics go to
// stderr and, once a storage root is known, to a size-rotated file under
// <storage>/logs. Command output never goes through here.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nventive/Promptitude/internal/branding"
)

const (
	logFileName   = "promptitude.log"
	maxLogSizeMB  = 5
	maxLogBackups = 3
	maxLogAgeDays = 14
)

var (
	once sync.Once
	log  zerolog.Logger
)

// Options configure Init.
type Options struct {
	// Level is a zerolog level name; the PROMPTITUDE_LOG_LEVEL env var wins.
	Level string
	// Dir receives the rotated log file. Empty disables file output.
	Dir string
	// Console receives human-readable output. Defaults to stderr.
	Console io.Writer
}

// LevelFromEnv resolves the effective level: env var, then configured, then warn.
func LevelFromEnv(configured string) zerolog.Level {
	if lvl, ok := parseLevel(os.Getenv(branding.EnvVar("log_level"))); ok {
		return lvl
	}
	if lvl, ok := parseLevel(configured); ok {
		return lvl
	}
	return zerolog.WarnLevel
}

func parseLevel(s string) (zerolog.Level, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return zerolog.NoLevel, false
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, false
	}
	return lvl, true
}

// Init builds the global logger. Only the first call has an effect.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		log = New(opts)
	})
	return log
}

// Get returns the global logger, initialising a console-only one if Init was
// never called.
func Get() zerolog.Logger {
	return Init(Options{})
}

// New builds a logger without touching the global one.
func New(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.Kitchen,
	}

	if w := fileWriter(opts.Dir); w != nil {
		output = zerolog.MultiLevelWriter(output, w)
	}

	return zerolog.New(output).
		Level(LevelFromEnv(opts.Level)).
		With().
		Timestamp().
		Logger()
}

func fileWriter(dir string) io.Writer {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
	}
}
