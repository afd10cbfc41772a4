package focus

import (
	"context"
	"fmt"
	"log/slog"
)

// Logger receives arbiter decisions. Warn is used when the service fails a
// request, Info for denials and permanent losses, Debug for everything else.
type Logger interface {
	WarnPrintf(format string, args ...any)
	InfoPrintf(format string, args ...any)
	DebugPrintf(format string, args ...any)
}

// DefaultLogger returns a Logger writing to slog.Default() at call time.
func DefaultLogger() Logger {
	return slogLogger{}
}

// SlogLogger returns a Logger writing to l.
func SlogLogger(l *slog.Logger) Logger {
	return slogLogger{l: l}
}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) WarnPrintf(format string, args ...any) {
	s.logf(slog.LevelWarn, format, args)
}

func (s slogLogger) InfoPrintf(format string, args ...any) {
	s.logf(slog.LevelInfo, format, args)
}

func (s slogLogger) DebugPrintf(format string, args ...any) {
	s.logf(slog.LevelDebug, format, args)
}

func (s slogLogger) logf(level slog.Level, format string, args []any) {
	l := s.l
	if l == nil {
		l = slog.Default()
	}
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, "focus: "+fmt.Sprintf(format, args...))
}
