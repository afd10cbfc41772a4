package focus_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/haivivi/audiofocus/pkg/focus"
)

// levelLogger records messages per level.
type levelLogger struct {
	mu    sync.Mutex
	lines map[string][]string
}

func newLevelLogger() *levelLogger {
	return &levelLogger{lines: make(map[string][]string)}
}

func (l *levelLogger) add(level, format string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines[level] = append(l.lines[level], fmt.Sprintf(format, args...))
}

func (l *levelLogger) WarnPrintf(format string, args ...any)  { l.add("warn", format, args) }
func (l *levelLogger) InfoPrintf(format string, args ...any)  { l.add("info", format, args) }
func (l *levelLogger) DebugPrintf(format string, args ...any) { l.add("debug", format, args) }

func (l *levelLogger) get(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lines[level]
}

func TestDecisionLogLevels(t *testing.T) {
	tests := []struct {
		name   string
		result focus.Result
		change focus.Change
		level  string
		want   string
	}{
		{"failed", focus.Failed, focus.Gained, "warn", "request music: service returned failed"},
		{"denied", focus.Denied, focus.Gained, "info", "request music: denied"},
		{"lost permanently", focus.Granted, focus.LostPermanent, "info", "change music: lost permanently"},
		{"transient", focus.Granted, focus.LostTransient, "debug", "change music: lost_transient"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLevelLogger()
			svc := &fakeService{result: tt.result}
			arb := focus.New(svc,
				focus.WithAllowFocusManagement(true),
				focus.WithClientID("music"),
				focus.WithLogger(l),
			)
			arb.OnPlay(focus.WeakRef(&fakeSession{}))
			arb.OnFocusChange(tt.change)

			lines := l.get(tt.level)
			found := false
			for _, line := range lines {
				if strings.HasPrefix(line, tt.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("%s lines = %q, want prefix %q", tt.level, lines, tt.want)
			}
		})
	}
}

func TestGrantedLogsNoWarnings(t *testing.T) {
	l := newLevelLogger()
	arb := focus.New(&fakeService{result: focus.Granted},
		focus.WithAllowFocusManagement(true),
		focus.WithLogger(l),
	)
	arb.OnPlay(focus.WeakRef(&fakeSession{}))
	arb.OnFocusChange(focus.LostTransient)
	arb.OnFocusChange(focus.Gained)

	if got := append(l.get("warn"), l.get("info")...); len(got) != 0 {
		t.Fatalf("warn/info lines = %q, want none", got)
	}
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := focus.SlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	l.DebugPrintf("hidden %d", 1)
	l.InfoPrintf("shown %d", 2)
	l.WarnPrintf("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written below level:\n%s", out)
	}
	if !strings.Contains(out, `msg="focus: shown 2"`) || !strings.Contains(out, "level=WARN") {
		t.Fatalf("output:\n%s", out)
	}
}
