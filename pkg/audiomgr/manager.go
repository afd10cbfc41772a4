package audiomgr

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/audiofocus/pkg/focus"
)

// ErrClosed is returned by operations on a closed Manager.
var ErrClosed = errors.New("audiomgr: manager closed")

var _ focus.Service = (*Manager)(nil)

// Option configures a Manager.
type Option interface {
	apply(*Manager)
}

type loggerOption struct {
	l *slog.Logger
}

func (o loggerOption) apply(m *Manager) {
	m.logger = o.l
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return loggerOption{l: l}
}

type recorderOption struct {
	r Recorder
}

func (o recorderOption) apply(m *Manager) {
	m.recorder = o.r
}

// WithRecorder persists every event to r.
func WithRecorder(r Recorder) Option {
	return recorderOption{r: r}
}

type delayedGainOption bool

func (o delayedGainOption) apply(m *Manager) {
	m.delayedGain = bool(o)
}

// WithDelayedGain controls whether requests made while locked may be delayed.
// When disabled, such requests are denied. Defaults to true.
func WithDelayedGain(enabled bool) Option {
	return delayedGainOption(enabled)
}

type entry struct {
	req *focus.Request
	id  string
}

type notification struct {
	listener focus.Listener
	change   focus.Change
	event    Event
}

// Manager is an in-process focus service.
//
// It is safe to call methods on Manager from multiple goroutines.
type Manager struct {
	logger      *slog.Logger
	recorder    Recorder
	delayedGain bool

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	cond    *sync.Cond
	stack   []*entry // top is last
	delayed []*entry
	ids     map[*focus.Request]string
	locked  bool
	closed  bool

	pending   []notification
	lastTime  int64
	enqueued  int64
	delivered int64
	stopped   chan struct{}

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New creates a Manager and starts its dispatcher goroutine. Call Close to
// stop it.
func New(opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:      slog.Default(),
		delayedGain: true,
		ctx:         ctx,
		cancel:      cancel,
		ids:         make(map[*focus.Request]string),
		stopped:     make(chan struct{}),
		subs:        make(map[int]chan Event),
	}
	m.cond = sync.NewCond(&m.mu)
	for _, opt := range opts {
		opt.apply(m)
	}
	go m.dispatch()
	return m
}

// RequestFocus implements focus.Service.
func (m *Manager) RequestFocus(req *focus.Request) focus.Result {
	if req == nil {
		return focus.Failed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return focus.Failed
	}
	id := m.clientIDLocked(req)

	// The request event precedes the changes it causes.
	idx := len(m.pending)
	m.emitLocked(Event{Kind: EventRequest, Client: id, Gain: req.Gain})
	res := m.requestLocked(req, id)
	m.pending[idx].event.Result = res
	return res
}

func (m *Manager) requestLocked(req *focus.Request, id string) focus.Result {
	if m.locked {
		if req.AcceptsDelayedGain && m.delayedGain {
			m.removeLocked(req)
			m.delayed = append(m.delayed, &entry{req: req, id: id})
			return focus.Delayed
		}
		return focus.Denied
	}
	if top := m.topLocked(); top != nil && top.req == req {
		return focus.Granted
	}
	m.removeLocked(req)
	m.grantLocked(&entry{req: req, id: id})
	return focus.Granted
}

// grantLocked notifies the current holders according to e's gain kind and
// pushes e on top of the stack.
func (m *Manager) grantLocked(e *entry) {
	switch e.req.Gain {
	case focus.GainTransient, focus.GainTransientExclusive:
		if top := m.topLocked(); top != nil {
			m.notifyLocked(top, focus.LostTransient)
		}
	case focus.GainTransientMayDuck:
		if top := m.topLocked(); top != nil {
			m.notifyLocked(top, focus.LostTransientCanDuck)
		}
	default:
		for i := len(m.stack) - 1; i >= 0; i-- {
			m.notifyLocked(m.stack[i], focus.LostPermanent)
		}
		clear(m.stack)
		m.stack = m.stack[:0]
	}
	m.stack = append(m.stack, e)
}

// AbandonFocus implements focus.Service.
func (m *Manager) AbandonFocus(req *focus.Request) {
	if req == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	id, ok := m.ids[req]
	if !ok {
		id = req.ClientID
	}
	top := m.topLocked()
	wasTop := top != nil && top.req == req
	m.removeLocked(req)
	m.forgetLocked(req)
	m.emitLocked(Event{Kind: EventAbandon, Client: id, Gain: req.Gain})

	if wasTop && !m.locked {
		if next := m.topLocked(); next != nil {
			m.notifyLocked(next, focus.Gained)
		}
	}
}

// Lock takes focus away from the current holder for an exclusive system
// owner. Requests made while locked are delayed or denied.
func (m *Manager) Lock() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.locked {
		return nil
	}
	m.locked = true
	m.emitLocked(Event{Kind: EventLock})
	if top := m.topLocked(); top != nil {
		m.notifyLocked(top, focus.LostTransient)
	}
	return nil
}

// Unlock ends the exclusive owner. The most recent delayed request is granted;
// older delayed requests lose focus permanently. Without delayed requests the
// top of the stack regains focus.
func (m *Manager) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if !m.locked {
		return nil
	}
	m.locked = false
	m.emitLocked(Event{Kind: EventUnlock})

	if n := len(m.delayed); n > 0 {
		grant := m.delayed[n-1]
		for _, e := range m.delayed[:n-1] {
			m.notifyLocked(e, focus.LostPermanent)
		}
		m.delayed = nil
		m.grantLocked(grant)
		m.notifyLocked(grant, focus.Gained)
		return nil
	}
	if top := m.topLocked(); top != nil {
		m.notifyLocked(top, focus.Gained)
	}
	return nil
}

// Locked reports whether an exclusive owner holds focus.
func (m *Manager) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// Holder returns the client id of the request holding focus, or "" if none
// does or the manager is locked.
func (m *Manager) Holder() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return ""
	}
	if top := m.topLocked(); top != nil {
		return top.id
	}
	return ""
}

// Stack returns the client ids on the focus stack, top first.
func (m *Manager) Stack() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.stack))
	for i := len(m.stack) - 1; i >= 0; i-- {
		ids = append(ids, m.stack[i].id)
	}
	return ids
}

// Delayed returns the client ids of delayed requests, oldest first.
func (m *Manager) Delayed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.delayed))
	for _, e := range m.delayed {
		ids = append(ids, e.id)
	}
	return ids
}

// Sync blocks until every notification queued before the call has been
// delivered. It must not be called from a focus listener.
func (m *Manager) Sync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	target := m.enqueued
	for m.delivered < target {
		m.cond.Wait()
	}
}

// Subscribe returns a channel receiving every event and a function to cancel
// the subscription. Events are dropped when the channel buffer is full.
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			if _, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(ch)
			}
		})
	}
}

// Close stops the manager after delivering queued notifications. Subscriber
// channels are closed. Close is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.stopped
		return nil
	}
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()

	<-m.stopped
	m.cancel()

	m.subMu.Lock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	m.subMu.Unlock()
	return nil
}

func (m *Manager) clientIDLocked(req *focus.Request) string {
	if id, ok := m.ids[req]; ok {
		return id
	}
	id := req.ClientID
	if id == "" {
		id = uuid.NewString()
	}
	m.ids[req] = id
	return id
}

func (m *Manager) topLocked() *entry {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

// removeLocked drops req from the stack and the delayed queue.
func (m *Manager) removeLocked(req *focus.Request) {
	m.stack = removeEntry(m.stack, req)
	m.delayed = removeEntry(m.delayed, req)
}

func (m *Manager) forgetLocked(req *focus.Request) {
	delete(m.ids, req)
}

func removeEntry(entries []*entry, req *focus.Request) []*entry {
	out := entries[:0]
	for _, e := range entries {
		if e.req != req {
			out = append(out, e)
		}
	}
	for i := len(out); i < len(entries); i++ {
		entries[i] = nil
	}
	return out
}

func (m *Manager) notifyLocked(e *entry, change focus.Change) {
	m.enqueueLocked(notification{
		listener: e.req.Listener,
		change:   change,
		event:    Event{Kind: EventChange, Client: e.id, Gain: e.req.Gain, Change: change},
	})
}

func (m *Manager) emitLocked(ev Event) {
	m.enqueueLocked(notification{event: ev})
}

func (m *Manager) enqueueLocked(n notification) {
	n.event.ID = uuid.NewString()
	// Event times are strictly increasing so stored history keeps its order.
	now := time.Now().UnixNano()
	if now <= m.lastTime {
		now = m.lastTime + 1
	}
	m.lastTime = now
	n.event.Time = now
	m.pending = append(m.pending, n)
	m.enqueued++
	m.cond.Broadcast()
}

func (m *Manager) dispatch() {
	defer close(m.stopped)
	for {
		m.mu.Lock()
		for len(m.pending) == 0 && !m.closed {
			m.cond.Wait()
		}
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return
		}
		batch := m.pending
		m.pending = nil
		m.mu.Unlock()

		for _, n := range batch {
			m.deliver(n)
		}

		m.mu.Lock()
		m.delivered += int64(len(batch))
		m.cond.Broadcast()
		m.mu.Unlock()
	}
}

func (m *Manager) deliver(n notification) {
	if n.listener != nil {
		n.listener.OnFocusChange(n.change)
	}
	if m.recorder != nil {
		if err := m.recorder.Record(m.ctx, n.event); err != nil {
			m.logger.Warn("audiomgr: record event", "kind", n.event.Kind, "client", n.event.Client, "error", err)
		}
	}

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- n.event:
		default:
			m.logger.Debug("audiomgr: subscriber full, dropping event", "kind", n.event.Kind)
		}
	}
}
