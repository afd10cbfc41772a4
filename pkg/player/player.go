package player

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Option configures a Player.
type Option interface {
	apply(*Player)
}

type loggerOption struct {
	l *slog.Logger
}

func (o loggerOption) apply(p *Player) {
	p.logger = o.l
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return loggerOption{l: l}
}

// Player mixes sessions into one PCM stream.
//
// It is safe to call methods on Player from multiple goroutines. Read never
// blocks on idle sessions: with nothing playing it returns silence. A source
// that blocks holds up Read only; Pause, Stop, NewSession and Close proceed,
// and stopping the session closes a source that implements io.Closer.
type Player struct {
	format    Format
	readChunk int
	logger    *slog.Logger

	mixMu   sync.Mutex // serializes Read; guards buf and scratch
	buf     []float32
	scratch []byte

	mu     sync.Mutex
	head   *Session
	closed bool
}

// New creates a Player producing audio in format f.
func New(f Format, opts ...Option) *Player {
	p := &Player{
		format:    f,
		readChunk: int(f.BytesInDuration(60 * time.Millisecond)),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(p)
	}
	return p
}

// Format returns the output format.
func (p *Player) Format() Format {
	return p.format
}

// NewSession adds a session reading 16-bit mono PCM in the player's format
// from src. The session is idle until Start is called. If src implements
// io.Closer it is closed when the session stops.
func (p *Player) NewSession(src io.Reader, opts ...SessionOption) (*Session, error) {
	if src == nil {
		return nil, fmt.Errorf("player: nil source")
	}
	s := &Session{player: p, src: src}
	s.gain.Store(1)
	for _, opt := range opts {
		opt.apply(s)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	s.next = p.head
	p.head = s
	return s, nil
}

// Sessions returns the sessions that have not stopped, newest first.
func (p *Player) Sessions() []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Session
	for it := p.head; it != nil; it = it.next {
		if it.IsActive() {
			out = append(out, it)
		}
	}
	return out
}

// Read fills b with mixed audio. At most 60ms is produced per call and the
// length is rounded down to whole samples. Read returns io.EOF once the
// player is closed.
func (p *Player) Read(b []byte) (int, error) {
	if len(b) > p.readChunk {
		b = b[:p.readChunk]
	}
	b = b[:len(b)&^1]
	if len(b) == 0 {
		return 0, io.ErrShortBuffer
	}

	ended, err := p.mix(b)
	// Sources ended outside the lock so delegates may call back into us.
	for _, s := range ended {
		p.logger.Debug("player: source ended", "label", s.label)
		s.Stop()
	}
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *Player) mix(b []byte) ([]*Session, error) {
	p.mixMu.Lock()
	defer p.mixMu.Unlock()

	sessions, err := p.active()
	if err != nil {
		return nil, err
	}

	samples := len(b) / 2
	if len(p.buf) < samples {
		p.buf = make([]float32, samples)
		p.scratch = make([]byte, samples*2)
	}
	buf := p.buf[:samples]
	clear(buf)

	// Sources are read without p.mu so a blocked source does not hold up
	// NewSession or Close.
	var ended []*Session
	for _, s := range sessions {
		if s.mix(buf, p.scratch) {
			ended = append(ended, s)
		}
	}

	for i, v := range buf {
		s := int16(min(max(v*32768, -32768), 32767))
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return ended, nil
}

// active unlinks stopped sessions and returns the others.
func (p *Player) active() ([]*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, io.EOF
	}
	var out []*Session
	var prev *Session
	for it := p.head; it != nil; it = it.next {
		if !it.IsActive() {
			if prev == nil {
				p.head = it.next
			} else {
				prev.next = it.next
			}
			continue
		}
		out = append(out, it)
		prev = it
	}
	return out, nil
}

// Close stops every session and makes Read return io.EOF.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	var sessions []*Session
	for it := p.head; it != nil; it = it.next {
		sessions = append(sessions, it)
	}
	p.head = nil
	p.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
