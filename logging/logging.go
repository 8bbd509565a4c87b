// Package logging provides the structured, rotated logger that
// config.Watcher and cmd/sclcenc are handed as a value rather than
// reaching for a package-level global, mirroring config.Config.Logger in
// the teacher repo's revid package. The codec packages do not log.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level mirrors revid.Logger's int8 level scale so callers already
// familiar with that convention need no translation.
type Level int8

const (
	Debug Level = iota
	Info
	Warning
	Error
	Fatal
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Info:
		return zapcore.InfoLevel
	case Warning:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}

// Logger is the interface every package in this module logs through,
// shaped after revid.Logger (SetLevel, Log) so the rest of the codebase
// never depends on zap's API directly.
type Logger interface {
	SetLevel(Level)
	Log(level Level, message string, params ...interface{})
}

// ZapLogger backs Logger with a zap.SugaredLogger writing to a
// lumberjack-rotated file, suitable for a long-running encode daemon.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	atom  zap.AtomicLevel
	sink  *lumberjack.Logger
}

// Options configures the rotating file sink. Zero values fall back to
// lumberjack's own defaults except Filename, which is required.
type Options struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Level      Level
}

// New creates a ZapLogger writing JSON lines to opts.Filename, rotated by
// lumberjack per opts.MaxSizeMB/MaxBackups/MaxAgeDays.
func New(opts Options) *ZapLogger {
	sink := &lumberjack.Logger{
		Filename:   opts.Filename,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
	atom := zap.NewAtomicLevelAt(opts.Level.zapLevel())
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(sink),
		atom,
	)
	logger := zap.New(core)
	return &ZapLogger{sugar: logger.Sugar(), atom: atom, sink: sink}
}

// SetLevel adjusts the atomic level in place; already-issued log calls at
// the old level are unaffected, matching zap.AtomicLevel's semantics.
func (l *ZapLogger) SetLevel(level Level) {
	l.atom.SetLevel(level.zapLevel())
}

// Log emits message at level with params as alternating key/value pairs,
// the same calling convention as revid.Logger.Log.
func (l *ZapLogger) Log(level Level, message string, params ...interface{}) {
	switch level {
	case Debug:
		l.sugar.Debugw(message, params...)
	case Info:
		l.sugar.Infow(message, params...)
	case Warning:
		l.sugar.Warnw(message, params...)
	case Error:
		l.sugar.Errorw(message, params...)
	default:
		l.sugar.Fatalw(message, params...)
	}
}

// Close flushes buffered log entries and closes the rotated file.
func (l *ZapLogger) Close() error {
	_ = l.sugar.Sync()
	return l.sink.Close()
}
