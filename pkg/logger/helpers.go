package logger

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
)

// Must panics when logger construction fails. Meant for main, where
// running without a logger makes no sense.
func Must(log *Logger, err error) *Logger {
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	return log
}

// Caller returns the call site as a slog attribute. skip counts frames
// above the immediate caller.
func Caller(skip int) slog.Attr {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return slog.String("caller", "unknown")
	}
	return slog.String("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
}
