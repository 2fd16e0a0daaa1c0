// Package logger builds the process-wide zerolog logger: console and
// rotating-file sinks, with credential redaction in front of both.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls where log output goes and how it is filtered.
type Config struct {
	Level     string // debug, info, warn, error
	File      string // log file path, empty disables file output
	Console   bool
	Pretty    bool // human-readable console format
	Redaction bool // mask credentials before writing
	MaxSize   int  // MB before the log file rotates
	MaxAge    int  // days to keep rotated files
	Compress  bool // gzip rotated files
}

// Logger is the root structured logger. Components derive scoped
// children from it via With or GetZerolog.
type Logger struct {
	zl       zerolog.Logger
	file     io.Closer
	redactor *Redactor
}

// New builds the logger. An unknown level falls back to info.
func New(cfg Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	l := &Logger{}
	sink, err := l.buildSink(cfg)
	if err != nil {
		return nil, err
	}

	l.zl = zerolog.New(sink).Level(level).With().Timestamp().Logger()

	// Packages that log through the zerolog global pick up the same sink.
	log.Logger = l.zl

	return l, nil
}

func (l *Logger) buildSink(cfg Config) (io.Writer, error) {
	var sinks []io.Writer

	if cfg.Console {
		if cfg.Pretty {
			sinks = append(sinks, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		} else {
			sinks = append(sinks, os.Stdout)
		}
	}

	if cfg.File != "" {
		maxSize := cfg.MaxSize
		if maxSize <= 0 {
			maxSize = 100
		}
		rw, err := NewRotatingWriter(cfg.File, maxSize, cfg.MaxAge, cfg.Compress)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, rw)
		l.file = rw
	}

	var sink io.Writer
	switch len(sinks) {
	case 0:
		sink = os.Stdout
	case 1:
		sink = sinks[0]
	default:
		sink = io.MultiWriter(sinks...)
	}

	if cfg.Redaction {
		l.redactor = NewRedactor()
		sink = l.redactor.Wrap(sink)
	}

	return sink, nil
}

// Close closes the log file, if one is open.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// With starts a child logger with extra context fields.
func (l *Logger) With() zerolog.Context { return l.zl.With() }

// GetZerolog returns the underlying zerolog.Logger for injection into
// packages that take one directly.
func (l *Logger) GetZerolog() zerolog.Logger { return l.zl }
