package player

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haivivi/audiofocus/pkg/focus"
)

// ErrClosed is returned when using a stopped session or a closed player.
var ErrClosed = errors.New("player: closed")

// Delegate receives the play intents of a session.
type Delegate interface {
	// OnPlay is called by Session.Start before the session starts playing.
	// The delegate may pause the session through ref.
	OnPlay(ref focus.SessionRef)

	// OnStop is called once when the session stops.
	OnStop(ref focus.SessionRef)
}

var _ Delegate = (*focus.Arbiter)(nil)

// State is the playback state of a session.
type State int

const (
	StateIdle State = iota
	StateStarting
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// SessionOption configures a Session.
type SessionOption interface {
	apply(*Session)
}

type delegateOption struct {
	d Delegate
}

func (o delegateOption) apply(s *Session) {
	s.delegate = o.d
}

// WithDelegate sets the delegate notified of play intents.
func WithDelegate(d Delegate) SessionOption {
	return delegateOption{d: d}
}

type labelOption string

func (o labelOption) apply(s *Session) {
	s.label = string(o)
}

// WithLabel sets a label for the session.
func WithLabel(label string) SessionOption {
	return labelOption(label)
}

type onPlayOption func()

func (o onPlayOption) apply(s *Session) {
	s.onPlay = o
}

// WithOnPlay sets a callback invoked on every Play call.
func WithOnPlay(fn func()) SessionOption {
	return onPlayOption(fn)
}

type onPauseOption func()

func (o onPauseOption) apply(s *Session) {
	s.onPause = o
}

// WithOnPause sets a callback invoked on every Pause call.
func WithOnPause(fn func()) SessionOption {
	return onPauseOption(fn)
}

// Session is one audio source in a Player. It implements focus.Session.
//
// It is safe to call methods on Session from multiple goroutines.
type Session struct {
	player   *Player
	label    string
	delegate Delegate
	onPlay   func()
	onPause  func()

	mu       sync.Mutex
	src      io.Reader
	state    State
	fadeIn   int64 // samples
	fadePos  int64
	stopOnce sync.Once

	gain  AtomicFloat32
	readn atomic.Int64

	next *Session
}

var _ focus.Session = (*Session)(nil)

// Label returns the session label.
func (s *Session) Label() string {
	return s.label
}

// Ref returns a weak reference to s for a Delegate.
func (s *Session) Ref() focus.SessionRef {
	return focus.WeakRef(s)
}

// State returns the playback state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start expresses the intent to play. The delegate is consulted first; the
// session then plays unless the delegate paused it.
func (s *Session) Start() error {
	s.mu.Lock()
	switch s.state {
	case StateStopped:
		s.mu.Unlock()
		return ErrClosed
	case StatePlaying:
		s.mu.Unlock()
		return nil
	}
	s.state = StateStarting
	s.mu.Unlock()

	if s.delegate != nil {
		s.delegate.OnPlay(s.Ref())
	}

	s.mu.Lock()
	if s.state == StateStarting {
		s.startLocked()
	}
	s.mu.Unlock()
	return nil
}

// Play resumes playback. It does nothing once the session stopped.
func (s *Session) Play() {
	if s.onPlay != nil {
		s.onPlay()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped || s.state == StatePlaying {
		return
	}
	s.startLocked()
}

// Pause holds playback. It does nothing once the session stopped.
func (s *Session) Pause() {
	if s.onPause != nil {
		s.onPause()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	s.state = StatePaused
}

// IsActive reports whether the session has not stopped.
func (s *Session) IsActive() bool {
	return s.State() != StateStopped
}

// Stop ends the session and notifies the delegate. Stop is idempotent.
func (s *Session) Stop() error {
	return s.finish(true)
}

// Abort ends the session without notifying the delegate, as if its owner
// disappeared.
func (s *Session) Abort() error {
	return s.finish(false)
}

// SetGain sets the linear gain of the session. 1 is full volume.
func (s *Session) SetGain(gain float32) {
	s.gain.Store(gain)
}

// Gain returns the linear gain of the session.
func (s *Session) Gain() float32 {
	return s.gain.Load()
}

// SetFadeIn sets the fade-in applied whenever playback (re)starts.
func (s *Session) SetFadeIn(d time.Duration) {
	n := s.player.format.BytesInDuration(d) / 2
	s.mu.Lock()
	s.fadeIn = n
	s.fadePos = n
	s.mu.Unlock()
}

// ReadBytes returns the number of bytes consumed from the source.
func (s *Session) ReadBytes() int64 {
	return s.readn.Load()
}

func (s *Session) startLocked() {
	s.state = StatePlaying
	s.fadePos = 0
}

func (s *Session) finish(notify bool) error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.state = StateStopped
		src := s.src
		s.mu.Unlock()

		if c, ok := src.(io.Closer); ok {
			err = c.Close()
		}
		if notify && s.delegate != nil {
			s.delegate.OnStop(s.Ref())
		}
	})
	return err
}

// mix reads len(buf) samples' worth of audio from the source and adds it to
// buf. It reports whether the source ended. The source is read without s.mu
// held, so Pause and Stop never wait on a blocked source.
func (s *Session) mix(buf []float32, scratch []byte) (ended bool) {
	s.mu.Lock()
	playing, src := s.state == StatePlaying, s.src
	s.mu.Unlock()
	if !playing {
		return false
	}

	scratch = scratch[:len(buf)*2]
	n, err := io.ReadFull(src, scratch)
	s.readn.Add(int64(n))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return false
	}
	gain := s.gain.Load()
	for i := 0; i < n/2; i++ {
		v := int16(uint16(scratch[2*i]) | uint16(scratch[2*i+1])<<8)
		g := gain
		if s.fadePos < s.fadeIn {
			g *= float32(s.fadePos) / float32(s.fadeIn)
			s.fadePos++
		}
		buf[i] += float32(v) / 32768 * g
	}
	return err != nil
}
