package scenario_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haivivi/audiofocus/pkg/audiomgr"
	"github.com/haivivi/audiofocus/pkg/focus"
	"github.com/haivivi/audiofocus/pkg/player"
	"github.com/haivivi/audiofocus/pkg/scenario"
)

func mustParse(t *testing.T, doc string) *scenario.Scenario {
	t.Helper()
	sc, err := scenario.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return sc
}

func TestTestdata(t *testing.T) {
	files, err := filepath.Glob("testdata/*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no testdata scenarios")
	}
	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			sc, err := scenario.Load(f)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if _, err := scenario.Run(context.Background(), sc, scenario.Options{}); err != nil {
				t.Fatalf("Run: %v", err)
			}
		})
	}
}

func TestDelayedTransientGainedTrace(t *testing.T) {
	sc, err := scenario.Load("testdata/delayed_transient.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tr, err := scenario.Run(context.Background(), sc, scenario.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []scenario.Call{
		{Step: 1, App: "music", Call: "pause"},
		{Step: 3, App: "music", Call: "pause"},
		{Step: 5, App: "music", Call: "play"},
	}
	if len(tr.Calls) != len(want) {
		t.Fatalf("calls = %+v", tr.Calls)
	}
	for i := range want {
		if tr.Calls[i] != want[i] {
			t.Fatalf("calls[%d] = %+v, want %+v", i, tr.Calls[i], want[i])
		}
	}
	if tr.Steps != len(sc.Steps) {
		t.Fatalf("Steps = %d", tr.Steps)
	}

	var delayed bool
	for _, ev := range tr.Events {
		if ev.Kind == audiomgr.EventRequest && ev.Client == "music" && ev.Result == focus.Delayed {
			delayed = true
		}
	}
	if !delayed {
		t.Fatalf("no delayed request event in %+v", tr.Events)
	}
}

func TestExpectationFailure(t *testing.T) {
	sc := mustParse(t, `
name: wrong expectation
apps: [{name: music}]
clients: [{name: nav, gain: transient}]
steps:
  - play: music
  - request: nav
  - expect: {app: music, plays: 3, pauses: 1, state: playing}
  - abandon: nav
`)
	tr, err := scenario.Run(context.Background(), sc, scenario.Options{})
	if !errors.Is(err, scenario.ErrExpectation) {
		t.Fatalf("Run = %v, want ErrExpectation", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "plays = 0, want 3") || !strings.Contains(msg, "state = paused_transient, want playing") {
		t.Fatalf("error = %q", msg)
	}
	if strings.Contains(msg, "pauses") {
		t.Fatalf("matching pause count reported: %q", msg)
	}
	if tr == nil || tr.Steps != 3 {
		t.Fatalf("trace = %+v", tr)
	}
}

func TestAudioFollowsFocus(t *testing.T) {
	sc := mustParse(t, `
name: audio follows focus
apps: [{name: music}]
clients: [{name: nav, gain: transient}]
steps:
  - play: music
  - request: nav
  - expect: {app: music, audible: false}
  - abandon: nav
  - expect: {app: music, audible: true}
  - stop: music
  - expect: {app: music, audible: false}
`)
	tr, err := scenario.Run(context.Background(), sc, scenario.Options{Tick: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Ticks after play, abandon and the expect that follows it.
	tick := player.L16Mono16K.BytesInDuration(10 * time.Millisecond)
	want := []scenario.Audio{{App: "music", Bytes: 3 * tick, Time: 30 * time.Millisecond}}
	if len(tr.Audio) != 1 || tr.Audio[0] != want[0] {
		t.Fatalf("Audio = %+v, want %+v", tr.Audio, want)
	}
}

func TestAudibleExpectation(t *testing.T) {
	sc := mustParse(t, `
name: silent expectation
apps: [{name: music}]
steps:
  - play: music
  - expect: {app: music, audible: false}
`)
	_, err := scenario.Run(context.Background(), sc, scenario.Options{})
	if !errors.Is(err, scenario.ErrExpectation) || !strings.Contains(err.Error(), "audible = true, want false") {
		t.Fatalf("Run = %v", err)
	}
}

func TestDelayedGainDisabled(t *testing.T) {
	sc := mustParse(t, `
name: denied while locked
delayed_gain: false
apps: [{name: music}]
steps:
  - lock: true
  - play: music
  - expect: {app: music, plays: 0, pauses: 1, state: paused}
  - unlock: true
  - expect: {app: music, plays: 0, pauses: 1, state: paused}
`)
	if _, err := scenario.Run(context.Background(), sc, scenario.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRecorderReceivesEvents(t *testing.T) {
	sc := mustParse(t, `
name: recorded
apps: [{name: music}]
steps:
  - play: music
  - stop: music
`)
	var (
		mu    sync.Mutex
		kinds []audiomgr.EventKind
	)
	rec := audiomgr.RecorderFunc(func(_ context.Context, ev audiomgr.Event) error {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
		return nil
	})
	tr, err := scenario.Run(context.Background(), sc, scenario.Options{Recorder: rec})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(tr.Events) != 2 {
		t.Fatalf("events = %+v", tr.Events)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) < 2 || kinds[0] != audiomgr.EventRequest || kinds[1] != audiomgr.EventAbandon {
		t.Fatalf("recorded kinds = %v", kinds)
	}
}

func TestCanceledContext(t *testing.T) {
	sc := mustParse(t, `
name: canceled
apps: [{name: music}]
steps:
  - play: music
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr, err := scenario.Run(ctx, sc, scenario.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}
	if tr.Steps != 0 {
		t.Fatalf("Steps = %d", tr.Steps)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "empty document"},
		{"unknown field", "name: x\napps: []\nsteps: []\nvolume: 3\n", "volume"},
		{"no op", "name: x\napps: [{name: a}]\nsteps: [{}]\n", "exactly one operation"},
		{"two ops", "name: x\napps: [{name: a}]\nsteps: [{play: a, stop: a}]\n", "exactly one operation"},
		{"unknown app", "name: x\napps: [{name: a}]\nsteps: [{play: b}]\n", `unknown app "b"`},
		{"unknown client", "name: x\napps: []\nsteps: [{request: b}]\n", `unknown client "b"`},
		{"duplicate", "name: x\napps: [{name: a}]\nclients: [{name: a}]\nsteps: []\n", "duplicate name"},
		{"bad gain", "name: x\napps: [{name: a, gain: loud}]\nsteps: []\n", `unknown gain "loud"`},
		{"bad change", "name: x\napps: [{name: a}]\nsteps: [{change: {app: a, change: meh}}]\n", `unknown change "meh"`},
		{"bad state", "name: x\napps: [{name: a}]\nsteps: [{expect: {app: a, state: off}}]\n", `unknown state "off"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scenario.Parse(strings.NewReader(tt.doc))
			if !errors.Is(err, scenario.ErrInvalid) {
				t.Fatalf("Parse = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestSchema(t *testing.T) {
	s, err := scenario.Schema()
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	for _, p := range []string{"name", "apps", "clients", "steps"} {
		if _, ok := s.Properties[p]; !ok {
			t.Fatalf("schema lacks property %q", p)
		}
	}
}

func TestValidate(t *testing.T) {
	ok := []byte(`
name: valid
apps: [{name: music, gain: transient}]
steps:
  - play: music
  - expect: {app: music, plays: 0}
`)
	if err := scenario.Validate(ok); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	bad := []string{
		"apps: []\nsteps: []\n",
		"name: x\napps: [{name: a, gain: loud}]\nsteps: []\n",
		"name: x\napps: []\nsteps: [{expect: {app: a, plays: many}}]\n",
	}
	for _, doc := range bad {
		if err := scenario.Validate([]byte(doc)); !errors.Is(err, scenario.ErrInvalid) {
			t.Fatalf("Validate(%q) = %v, want ErrInvalid", doc, err)
		}
	}
}
