package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/haivivi/audiofocus/pkg/audiomgr"
	"github.com/haivivi/audiofocus/pkg/focus"
	"github.com/haivivi/audiofocus/pkg/player"
)

// ErrExpectation is wrapped by errors from failed expect steps.
var ErrExpectation = errors.New("scenario: expectation failed")

// Call is one Play or Pause call an arbiter made on an app's session.
type Call struct {
	Step int    `json:"step" yaml:"step"`
	App  string `json:"app" yaml:"app"`
	Call string `json:"call" yaml:"call"`
}

// Audio is the amount of audio an app's sessions fed into the mix.
type Audio struct {
	App   string        `json:"app" yaml:"app"`
	Bytes int64         `json:"bytes" yaml:"bytes"`
	Time  time.Duration `json:"time_ns" yaml:"time_ns"`
}

// Trace is the observable outcome of a run.
type Trace struct {
	Scenario string           `json:"scenario" yaml:"scenario"`
	Steps    int              `json:"steps" yaml:"steps"`
	Calls    []Call           `json:"calls" yaml:"calls"`
	Events   []audiomgr.Event `json:"events" yaml:"events"`
	Audio    []Audio          `json:"audio" yaml:"audio"`
}

// Counts returns the number of play and pause calls app received.
func (t *Trace) Counts(app string) (plays, pauses int) {
	for _, c := range t.Calls {
		if c.App != app {
			continue
		}
		switch c.Call {
		case "play":
			plays++
		case "pause":
			pauses++
		}
	}
	return plays, pauses
}

// Options configures Run.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Recorder additionally receives every manager event.
	Recorder audiomgr.Recorder

	// Format is the player format. Defaults to player.L16Mono16K.
	Format player.Format

	// Tick is the audio pulled from the player after every step. Defaults to
	// DefaultTick.
	Tick time.Duration
}

// DefaultTick is the audio pulled from the player after every step.
const DefaultTick = 20 * time.Millisecond

type runApp struct {
	name    string
	arbiter *focus.Arbiter
	session *player.Session

	done     int64 // bytes read by stopped sessions
	lastTick int64 // bytes read during the latest tick
}

// heard returns the bytes read by all of the app's sessions.
func (a *runApp) heard() int64 {
	n := a.done
	if a.session != nil {
		n += a.session.ReadBytes()
	}
	return n
}

type runner struct {
	sc     *Scenario
	opts   Options
	logger *slog.Logger
	mgr    *audiomgr.Manager
	player *player.Player

	apps    map[string]*runApp
	clients map[string]*focus.Request

	tick []byte

	mu    sync.Mutex
	step  int
	trace Trace
}

// Run executes sc against a fresh audiomgr.Manager. Each app gets its own
// focus.Arbiter and player session. After every step Run waits until all
// focus changes have been delivered, then mixes one tick of audio so playing
// sessions consume their sources. The trace is returned even when an
// expectation fails.
func Run(ctx context.Context, sc *Scenario, opts Options) (*Trace, error) {
	if err := sc.Check(); err != nil {
		return nil, err
	}
	r := &runner{
		sc:      sc,
		opts:    opts,
		logger:  opts.Logger,
		apps:    make(map[string]*runApp),
		clients: make(map[string]*focus.Request),
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.trace = Trace{Scenario: sc.Name, Calls: []Call{}, Events: []audiomgr.Event{}}

	r.mgr = audiomgr.New(
		audiomgr.WithLogger(r.logger),
		audiomgr.WithDelayedGain(enabled(sc.DelayedGain)),
		audiomgr.WithRecorder(audiomgr.RecorderFunc(r.record)),
	)
	defer r.mgr.Close()
	r.player = player.New(opts.Format, player.WithLogger(r.logger))
	defer r.player.Close()
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	r.tick = make([]byte, opts.Format.BytesInDuration(tick))

	for _, a := range sc.Apps {
		r.apps[a.Name] = &runApp{
			name: a.Name,
			arbiter: focus.New(r.mgr,
				focus.WithClientID(a.Name),
				focus.WithGain(focus.ParseGainKind(a.Gain)),
				focus.WithAllowFocusManagement(enabled(a.Allow)),
				focus.WithLogger(focus.SlogLogger(r.logger)),
			),
		}
	}
	for _, c := range sc.Clients {
		r.clients[c.Name] = &focus.Request{
			ClientID:           c.Name,
			Gain:               focus.ParseGainKind(c.Gain),
			AcceptsDelayedGain: c.AcceptsDelayed,
			Listener: focus.ListenerFunc(func(change focus.Change) {
				r.logger.Debug("scenario: client focus change", "client", c.Name, "change", change)
			}),
		}
	}

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return r.snapshot(), err
		}
		r.mu.Lock()
		r.step = i
		r.mu.Unlock()

		err := r.exec(i, step)
		r.mgr.Sync()
		if err == nil {
			err = r.pull()
		}
		if err == nil && step.Expect != nil {
			err = r.expect(i, step.Expect)
		}
		r.mu.Lock()
		r.trace.Steps = i + 1
		r.mu.Unlock()
		if err != nil {
			return r.snapshot(), err
		}
	}
	return r.snapshot(), nil
}

func (r *runner) exec(i int, s Step) error {
	r.logger.Debug("scenario: step", "index", i, "op", s.Op())
	switch s.Op() {
	case "play":
		return r.play(r.apps[s.Play])
	case "stop":
		if sess := r.apps[s.Stop].session; sess != nil {
			return sess.Stop()
		}
	case "kill":
		if sess := r.apps[s.Kill].session; sess != nil {
			return sess.Abort()
		}
	case "allow":
		r.apps[s.Allow].arbiter.SetAllowFocusManagement(true)
	case "deny":
		r.apps[s.Deny].arbiter.SetAllowFocusManagement(false)
	case "request":
		r.mgr.RequestFocus(r.clients[s.Request])
	case "abandon":
		r.mgr.AbandonFocus(r.clients[s.Abandon])
	case "lock":
		return r.mgr.Lock()
	case "unlock":
		return r.mgr.Unlock()
	case "change":
		r.apps[s.Change.App].arbiter.OnFocusChange(focus.ParseChange(s.Change.Change))
	}
	return nil
}

// play starts the app's session, creating a new one once the previous
// session stopped.
func (r *runner) play(a *runApp) error {
	if a.session == nil || !a.session.IsActive() {
		if a.session != nil {
			a.done += a.session.ReadBytes()
		}
		sess, err := r.player.NewSession(
			player.Tone(r.opts.Format, 440, 0.2),
			player.WithLabel(a.name),
			player.WithDelegate(a.arbiter),
			player.WithOnPlay(func() { r.call(a.name, "play") }),
			player.WithOnPause(func() { r.call(a.name, "pause") }),
		)
		if err != nil {
			return fmt.Errorf("scenario: new session for %s: %w", a.name, err)
		}
		a.session = sess
	}
	return a.session.Start()
}

// pull mixes one tick of audio and notes which apps were heard in it.
func (r *runner) pull() error {
	before := make(map[string]int64, len(r.apps))
	for name, a := range r.apps {
		before[name] = a.heard()
	}
	if _, err := io.ReadFull(r.player, r.tick); err != nil {
		return fmt.Errorf("scenario: mix: %w", err)
	}
	for name, a := range r.apps {
		a.lastTick = a.heard() - before[name]
	}
	return nil
}

func (r *runner) expect(i int, e *Expect) error {
	plays, pauses := r.snapshot().Counts(e.App)
	var errs []error
	fail := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		errs = append(errs, fmt.Errorf("%w: steps[%d]: %s: %s", ErrExpectation, i, e.App, msg))
	}
	if e.Plays != nil && plays != *e.Plays {
		fail("plays = %d, want %d", plays, *e.Plays)
	}
	if e.Pauses != nil && pauses != *e.Pauses {
		fail("pauses = %d, want %d", pauses, *e.Pauses)
	}
	if e.State != "" {
		if got := r.apps[e.App].arbiter.Status().State.String(); got != e.State {
			fail("state = %s, want %s", got, e.State)
		}
	}
	if e.Holder != nil {
		if got := r.mgr.Holder(); got != *e.Holder {
			fail("holder = %q, want %q", got, *e.Holder)
		}
	}
	if e.Audible != nil {
		if got := r.apps[e.App].lastTick > 0; got != *e.Audible {
			fail("audible = %t, want %t", got, *e.Audible)
		}
	}
	return errors.Join(errs...)
}

func (r *runner) call(app, call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace.Calls = append(r.trace.Calls, Call{Step: r.step, App: app, Call: call})
}

func (r *runner) record(ctx context.Context, ev audiomgr.Event) error {
	r.mu.Lock()
	r.trace.Events = append(r.trace.Events, ev)
	r.mu.Unlock()
	if r.opts.Recorder != nil {
		return r.opts.Recorder.Record(ctx, ev)
	}
	return nil
}

func (r *runner) snapshot() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.trace
	t.Calls = append([]Call{}, r.trace.Calls...)
	t.Events = append([]audiomgr.Event{}, r.trace.Events...)
	t.Audio = []Audio{}
	for _, app := range r.sc.Apps {
		n := r.apps[app.Name].heard()
		t.Audio = append(t.Audio, Audio{App: app.Name, Bytes: n, Time: r.opts.Format.Duration(n)})
	}
	return &t
}
