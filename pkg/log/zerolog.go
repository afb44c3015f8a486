package log

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// ZerologProvider is a LoggerProvider backed by zerolog with console output.
type ZerologProvider struct {
	mu     sync.RWMutex
	root   zerolog.Logger
	level  Level
	zlevel zerolog.Level
}

// NewZerologProvider creates a provider writing console-formatted logs to
// stderr at the given minimum level.
func NewZerologProvider(level Level) *ZerologProvider {
	zl := toZerologLevel(level)
	root := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zl).
		With().Timestamp().Logger()
	return &ZerologProvider{root: root, level: level, zlevel: zl}
}

// NewZerologProviderWithLogger wraps an existing zerolog.Logger. Used by
// tests to capture output.
func NewZerologProviderWithLogger(logger zerolog.Logger, level Level) *ZerologProvider {
	return &ZerologProvider{root: logger, level: level, zlevel: toZerologLevel(level)}
}

// GetLogger returns the default logger instance.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{logger: p.root, level: p.level}
}

// GetLoggerWithName returns a logger tagged with a component name.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{
		logger: p.root.With().Str(ComponentKey, name).Logger(),
		level:  p.level,
	}
}

// SetLevel sets the minimum log level for loggers created by this provider.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.zlevel = toZerologLevel(level)
	p.root = p.root.Level(p.zlevel)
}

// ToLogLevel converts a level name to a Level. Unknown names default to info.
func ToLogLevel(level string) Level {
	switch level {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// zerologLogger adapts zerolog.Logger to the Logger interface.
type zerologLogger struct {
	logger zerolog.Logger
	level  Level
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	l.emit(l.logger.Debug(), msg, fields)
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	l.emit(l.logger.Info(), msg, fields)
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	event, fields := hoistErr(l.logger.Warn(), fields)
	l.emit(event, msg, fields)
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	event, fields := hoistErr(l.logger.Error(), fields)
	l.emit(event, msg, fields)
}

// hoistErr turns a leading error value into the event's error attribute so
// callers can pass it before the key/value pairs.
func hoistErr(event *zerolog.Event, fields []any) (*zerolog.Event, []any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			return event.Err(err), fields[1:]
		}
	}
	return event, fields
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zerologLogger{logger: ctx.Logger(), level: l.level}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= l.level
}

func (l *zerologLogger) emit(event *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		switch v := fields[i+1].(type) {
		case error:
			event = event.AnErr(key, v)
		default:
			event = event.Interface(key, v)
		}
	}
	if len(fields)%2 != 0 {
		event = event.Interface("extra", fields[len(fields)-1])
	}
	event.Msg(msg)
}
