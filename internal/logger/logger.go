package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

const permission = 0o664

// Build collects logger options before Make.
type Build struct {
	writer  io.Writer
	path    string
	level   string
	console bool
}

// Log is a ready logger plus the file it may own.
type Log struct {
	Logger  zerolog.Logger
	LogFile *os.File
}

func New() *Build {
	return &Build{writer: os.Stderr, level: "info"}
}

func (b *Build) FromPath(path string) *Build {
	b.path = path
	return b
}

func (b *Build) FromBuffer(w io.Writer) *Build {
	b.writer = w
	return b
}

func (b *Build) Level(level string) *Build {
	b.level = level
	return b
}

// Console switches to the human-readable writer. It only applies when
// logging to a terminal stream, not to a file.
func (b *Build) Console(on bool) *Build {
	b.console = on
	return b
}

func (b *Build) Make() (*Log, error) {
	lvl, err := zerolog.ParseLevel(b.level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", b.level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := new(Log)
	w := b.writer
	switch {
	case b.path != "":
		out.LogFile, err = os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = zerolog.SyncWriter(out.LogFile)
	case b.console:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	out.Logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return out, nil
}

// Component derives a child logger tagged with the subsystem name.
func (l *Log) Component(name string) zerolog.Logger {
	return l.Logger.With().Str("component", name).Logger()
}

func (l *Log) Close() error {
	if l.LogFile == nil {
		return nil
	}
	return l.LogFile.Close()
}
