package queue

import (
	"fmt"
	"log/slog"
	"os"
)

// Logger routes asynq server logs through slog.
type Logger struct {
	l *slog.Logger
}

func NewLogger() *Logger {
	return &Logger{l: slog.Default().With("component", "asynq")}
}

func (l *Logger) Debug(args ...interface{}) { l.l.Debug(fmt.Sprint(args...)) }
func (l *Logger) Info(args ...interface{})  { l.l.Info(fmt.Sprint(args...)) }
func (l *Logger) Warn(args ...interface{})  { l.l.Warn(fmt.Sprint(args...)) }
func (l *Logger) Error(args ...interface{}) { l.l.Error(fmt.Sprint(args...)) }

func (l *Logger) Fatal(args ...interface{}) {
	l.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
