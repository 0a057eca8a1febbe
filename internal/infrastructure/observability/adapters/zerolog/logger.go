package zerolog

import (
	"fmt"
	"io"
	"strings"
	"time"

	"massdownloader/internal/application/ports"

	"github.com/rs/zerolog"
)

// Logger implements ports.Logger on top of zerolog
type Logger struct {
	logger zerolog.Logger
}

// NewLogger builds a logger writing to out. format is "json" or "console".
func NewLogger(out io.Writer, level, format string) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var base zerolog.Logger
	switch strings.ToLower(format) {
	case "json":
		base = zerolog.New(out)
	case "console":
		base = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		})
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	return &Logger{
		logger: base.With().Timestamp().Logger().Level(lvl),
	}, nil
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log(l.logger.Info(), msg, fields...)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log(l.logger.Error(), msg, fields...)
}

// WithFields returns a new Logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) ports.Logger {
	return &Logger{
		logger: l.logger.With().Fields(fields).Logger(),
	}
}

// log parses variadic fields (key1, value1, key2, value2, ...)
func (l *Logger) log(event *zerolog.Event, msg string, fields ...interface{}) {
	if event == nil {
		return
	}

	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}

		switch value := fields[i+1].(type) {
		case error:
			event = event.AnErr(key, value)
		case string:
			event = event.Str(key, value)
		case int:
			event = event.Int(key, value)
		case int64:
			event = event.Int64(key, value)
		case bool:
			event = event.Bool(key, value)
		case time.Duration:
			event = event.Dur(key, value)
		default:
			event = event.Interface(key, value)
		}
	}

	event.Msg(msg)
}
