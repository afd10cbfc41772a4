package focus

import (
	"sync"
	"sync/atomic"
)

// State is the playback state an Arbiter believes its session is in.
type State int

const (
	// StateIdle means no play intent is being arbitrated.
	StateIdle State = iota
	// StatePlaying means focus is held and playback runs unmanaged.
	StatePlaying
	// StateDelayed means playback waits for a delayed grant.
	StateDelayed
	// StatePausedTransient means playback was paused by a transient loss and
	// resumes on the next Gained.
	StatePausedTransient
	// StatePaused means playback was paused for good until the next play
	// intent.
	StatePaused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StateDelayed:
		return "delayed"
	case StatePausedTransient:
		return "paused_transient"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// Status is a snapshot of an Arbiter.
type Status struct {
	State             State
	ResumeOnFocusGain bool
	PlaybackDelayed   bool
	HasTarget         bool
}

// Option configures an Arbiter.
type Option interface {
	apply(*Arbiter)
}

type loggerOption struct {
	l Logger
}

func (o loggerOption) apply(a *Arbiter) {
	a.logger = o.l
}

// WithLogger sets the logger. Defaults to DefaultLogger().
func WithLogger(l Logger) Option {
	return loggerOption{l: l}
}

type allowOption bool

func (o allowOption) apply(a *Arbiter) {
	a.allow.Store(bool(o))
}

// WithAllowFocusManagement sets the initial policy gate. Defaults to false.
func WithAllowFocusManagement(allow bool) Option {
	return allowOption(allow)
}

type clientIDOption string

func (o clientIDOption) apply(a *Arbiter) {
	a.clientID = string(o)
}

// WithClientID names the arbiter in the service's bookkeeping.
func WithClientID(id string) Option {
	return clientIDOption(id)
}

type gainOption GainKind

func (o gainOption) apply(a *Arbiter) {
	a.gain = GainKind(o)
}

// WithGain sets the gain kind of the focus request. Defaults to Gain.
func WithGain(g GainKind) Option {
	return gainOption(g)
}

// Arbiter mediates between one playback owner's sessions and a focus Service.
//
// It is safe to call methods on Arbiter from multiple goroutines. OnPlay,
// OnStop and OnFocusChange run mutually exclusive.
type Arbiter struct {
	svc      Service
	logger   Logger
	clientID string
	gain     GainKind

	allow atomic.Bool

	mu                sync.Mutex
	target            SessionRef
	request           *Request
	resumeOnFocusGain bool
	playbackDelayed   bool
	state             State
}

var _ Listener = (*Arbiter)(nil)

// New creates an Arbiter that requests focus from svc.
func New(svc Service, opts ...Option) *Arbiter {
	a := &Arbiter{
		svc:    svc,
		logger: DefaultLogger(),
		target: nilRef{},
	}
	for _, opt := range opts {
		opt.apply(a)
	}
	return a
}

// SetAllowFocusManagement toggles the policy gate. When disabled, OnPlay does
// not arbitrate and playback proceeds unmanaged.
func (a *Arbiter) SetAllowFocusManagement(allow bool) {
	a.allow.Store(allow)
}

// AllowFocusManagement reports the policy gate.
func (a *Arbiter) AllowFocusManagement() bool {
	return a.allow.Load()
}

// Request returns the focus request descriptor used for every request and
// abandon.
func (a *Arbiter) Request() *Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requestLocked()
}

// Status returns a snapshot of the arbiter.
func (a *Arbiter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{
		State:             a.state,
		ResumeOnFocusGain: a.resumeOnFocusGain,
		PlaybackDelayed:   a.playbackDelayed,
		HasTarget:         a.target.Session() != nil,
	}
}

// OnPlay is called when ref's session intends to start playing. On Granted
// nothing is done and the session's own play proceeds. On Delayed the session
// is paused until focus arrives. On any other result the session is paused
// until the next play intent.
func (a *Arbiter) OnPlay(ref SessionRef) {
	if !a.allow.Load() {
		return
	}
	if ref == nil {
		ref = nilRef{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.target = ref
	a.reset()
	res := a.svc.RequestFocus(a.requestLocked())
	switch res {
	case Granted:
		a.logger.DebugPrintf("request %s: granted", a.clientID)
		a.state = StatePlaying
	case Delayed:
		a.logger.DebugPrintf("request %s: delayed", a.clientID)
		a.play(true)
		a.state = StateDelayed
	case Denied:
		a.logger.InfoPrintf("request %s: denied, pausing", a.clientID)
		a.pause(false)
		a.state = StatePaused
	default:
		a.logger.WarnPrintf("request %s: service returned %s, pausing", a.clientID, res)
		a.pause(false)
		a.state = StatePaused
	}
}

// OnStop is called when a session stopped playing. It gives focus back to the
// service. The session is not touched.
func (a *Arbiter) OnStop(SessionRef) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.svc.AbandonFocus(a.requestLocked())
	a.reset()
	a.state = StateIdle
}

// OnFocusChange implements Listener.
func (a *Arbiter) OnFocusChange(change Change) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch change {
	case Gained:
		a.logger.DebugPrintf("change %s: gained", a.clientID)
		if a.playbackDelayed || a.resumeOnFocusGain {
			a.play(false)
			a.state = StatePlaying
		}
	case LostPermanent:
		a.logger.InfoPrintf("change %s: lost permanently, pausing", a.clientID)
		a.pause(false)
		a.state = StatePaused
	case LostTransient, LostTransientCanDuck:
		// Ducking is declined in the request, so both losses pause.
		a.logger.DebugPrintf("change %s: %s", a.clientID, change)
		a.pause(true)
		a.state = StatePausedTransient
	default:
		a.logger.DebugPrintf("ignoring focus change %d", int(change))
	}
}

func (a *Arbiter) requestLocked() *Request {
	if a.request == nil {
		a.request = &Request{
			ClientID: a.clientID,
			Gain:     a.gain,
			Attributes: Attributes{
				Usage:       UsageMedia,
				ContentType: ContentMusic,
			},
			AcceptsDucking:     false,
			AcceptsDelayedGain: true,
			Listener:           a,
		}
	}
	return a.request
}

func (a *Arbiter) reset() {
	a.resumeOnFocusGain = false
	a.playbackDelayed = false
}

func (a *Arbiter) pause(temporary bool) {
	a.resumeOnFocusGain = temporary
	if s := a.target.Session(); s != nil {
		s.Pause()
	}
}

func (a *Arbiter) play(delayed bool) {
	a.playbackDelayed = delayed
	if delayed {
		// Hold the session until Gained arrives.
		a.pause(false)
		return
	}
	if s := a.target.Session(); s != nil {
		s.Play()
	}
}
