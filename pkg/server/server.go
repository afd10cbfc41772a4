// Package server exposes an audiomgr.Manager over a websocket.
//
// Clients connect to /events. Every manager event is pushed to every
// connection as a JSON message. Connections may send commands on the same
// socket to request or abandon focus for named clients and to lock or unlock
// the manager. Requests made by a connection are abandoned when it closes.
// GET /status returns a snapshot of the focus stack.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/haivivi/audiofocus/pkg/audiomgr"
	"github.com/haivivi/audiofocus/pkg/focus"
)

// Command is a message sent by a websocket client.
type Command struct {
	Op             string         `json:"op"`
	Client         string         `json:"client,omitempty"`
	Gain           focus.GainKind `json:"gain,omitempty"`
	AcceptsDelayed bool           `json:"accepts_delayed,omitempty"`
}

// Message is a message sent to websocket clients.
type Message struct {
	Type   string          `json:"type"`
	Op     string          `json:"op,omitempty"`
	Client string          `json:"client,omitempty"`
	Result *focus.Result   `json:"result,omitempty"`
	Event  *audiomgr.Event `json:"event,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Status is the body of GET /status.
type Status struct {
	Holder  string   `json:"holder"`
	Stack   []string `json:"stack"`
	Delayed []string `json:"delayed"`
	Locked  bool     `json:"locked"`
}

// Option configures a Server.
type Option interface {
	apply(*Server)
}

type loggerOption struct {
	l *slog.Logger
}

func (o loggerOption) apply(s *Server) {
	s.logger = o.l
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return loggerOption{l: l}
}

type bufferOption int

func (o bufferOption) apply(s *Server) {
	s.buffer = int(o)
}

// WithBuffer sets the per-connection event buffer. Events are dropped for
// connections that fall behind. Defaults to 256.
func WithBuffer(n int) Option {
	return bufferOption(n)
}

// Server serves a Manager over HTTP and websocket.
type Server struct {
	mgr      *audiomgr.Manager
	logger   *slog.Logger
	buffer   int
	upgrader websocket.Upgrader

	mu    sync.Mutex
	owned map[string]*conn // client name → owning connection
}

// New creates a Server for mgr.
func New(mgr *audiomgr.Manager, opts ...Option) *Server {
	s := &Server{
		mgr:    mgr,
		logger: slog.Default(),
		buffer: 256,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		owned: make(map[string]*conn),
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /status", s.handleStatus)
	return mux
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := srv.Shutdown(context.WithoutCancel(ctx)); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := Status{
		Holder:  s.mgr.Holder(),
		Stack:   s.mgr.Stack(),
		Delayed: s.mgr.Delayed(),
		Locked:  s.mgr.Locked(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.logger.Warn("server: write status", "error", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("server: upgrade", "error", err)
		return
	}
	c := &conn{
		srv:      s,
		ws:       ws,
		out:      make(chan Message, s.buffer),
		done:     make(chan struct{}),
		requests: make(map[string]*focus.Request),
	}
	events, cancel := s.mgr.Subscribe(s.buffer)
	s.logger.Debug("server: connection opened", "remote", r.RemoteAddr)

	go c.writeLoop(events)
	c.readLoop()

	cancel()
	close(c.done)
	c.release()
	s.logger.Debug("server: connection closed", "remote", r.RemoteAddr)
}

type conn struct {
	srv  *Server
	ws   *websocket.Conn
	out  chan Message
	done chan struct{}

	requests map[string]*focus.Request // only touched by readLoop
}

func (c *conn) readLoop() {
	for {
		var cmd Command
		if err := c.ws.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.srv.logger.Debug("server: read", "error", err)
			}
			return
		}
		c.reply(c.exec(cmd))
	}
}

func (c *conn) exec(cmd Command) Message {
	msg := Message{Type: "result", Op: cmd.Op, Client: cmd.Client}
	switch cmd.Op {
	case "request":
		req, err := c.request(cmd)
		if err != nil {
			return errorMessage(cmd, err)
		}
		res := c.srv.mgr.RequestFocus(req)
		msg.Result = &res
	case "abandon":
		req, ok := c.requests[cmd.Client]
		if !ok {
			return errorMessage(cmd, fmt.Errorf("client %q has no request on this connection", cmd.Client))
		}
		c.srv.mgr.AbandonFocus(req)
		c.forget(cmd.Client)
	case "lock":
		if err := c.srv.mgr.Lock(); err != nil {
			return errorMessage(cmd, err)
		}
	case "unlock":
		if err := c.srv.mgr.Unlock(); err != nil {
			return errorMessage(cmd, err)
		}
	default:
		return errorMessage(cmd, fmt.Errorf("unknown op %q", cmd.Op))
	}
	return msg
}

// request returns the connection's request for cmd.Client, creating it on
// first use. Client names are unique across connections.
func (c *conn) request(cmd Command) (*focus.Request, error) {
	if cmd.Client == "" {
		return nil, errors.New("client is required")
	}
	if req, ok := c.requests[cmd.Client]; ok {
		if req.Gain == cmd.Gain && req.AcceptsDelayedGain == cmd.AcceptsDelayed {
			return req, nil
		}
		// The manager reads requests under its own lock; a changed request
		// replaces the old one.
		c.srv.mgr.AbandonFocus(req)
		c.forget(cmd.Client)
	}

	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	if _, taken := c.srv.owned[cmd.Client]; taken {
		return nil, fmt.Errorf("client %q is owned by another connection", cmd.Client)
	}
	req := &focus.Request{
		ClientID:           cmd.Client,
		Gain:               cmd.Gain,
		AcceptsDelayedGain: cmd.AcceptsDelayed,
	}
	c.requests[cmd.Client] = req
	c.srv.owned[cmd.Client] = c
	return req, nil
}

func (c *conn) forget(client string) {
	delete(c.requests, client)
	c.srv.mu.Lock()
	delete(c.srv.owned, client)
	c.srv.mu.Unlock()
}

// release abandons every request of the connection.
func (c *conn) release() {
	for name, req := range c.requests {
		c.srv.mgr.AbandonFocus(req)
		c.forget(name)
	}
}

func (c *conn) reply(m Message) {
	select {
	case c.out <- m:
	case <-c.done:
	}
}

func (c *conn) writeLoop(events <-chan audiomgr.Event) {
	defer c.ws.Close()
	for {
		var m Message
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			m = Message{Type: "event", Event: &ev}
		case m = <-c.out:
		case <-c.done:
			return
		}
		if err := c.ws.WriteJSON(m); err != nil {
			c.srv.logger.Debug("server: write", "error", err)
			return
		}
	}
}

func errorMessage(cmd Command, err error) Message {
	return Message{Type: "error", Op: cmd.Op, Client: cmd.Client, Error: err.Error()}
}
