package rbackit

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Logger receives leveled messages with structured key/value context.
// *slog.Logger satisfies it directly; use NewLogrusLogger for logrus.
// A nil Logger is valid everywhere and discards messages.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

type logrusLogger struct {
	l logrus.FieldLogger
}

// NewLogrusLogger adapts a logrus logger or entry to Logger.
func NewLogrusLogger(l logrus.FieldLogger) Logger {
	return &logrusLogger{l: l}
}

func (l *logrusLogger) Debug(msg string, args ...any) {
	l.l.WithFields(fieldsFromArgs(args)).Debug(msg)
}

func (l *logrusLogger) Error(msg string, args ...any) {
	fields := fieldsFromArgs(args)
	if err, ok := fields["error"].(error); ok {
		delete(fields, "error")
		l.l.WithFields(fields).WithError(err).Error(msg)
		return
	}
	l.l.WithFields(fields).Error(msg)
}

// fieldsFromArgs turns slog-style alternating key/value pairs into logrus fields.
func fieldsFromArgs(args []any) logrus.Fields {
	fields := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("!BADKEY%d", i)
		}
		if i+1 >= len(args) {
			fields[key] = "!MISSING"
			break
		}
		fields[key] = args[i+1]
	}
	return fields
}

func logError(l Logger, op, msg string, err error) {
	if l == nil {
		return
	}
	l.Error(msg, "op", op, "error", err)
}

func logDebug(l Logger, msg string, args ...any) {
	if l == nil {
		return
	}
	l.Debug(msg, args...)
}
