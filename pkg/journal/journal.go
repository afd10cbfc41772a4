// Package journal persists focus manager events in a key-value store.
//
// Events are keyed by UTC day and timestamp so history can be scanned in
// chronological order and pruned by age. A [Journal] can be passed to
// audiomgr.WithRecorder to record every manager event.
package journal

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/audiofocus/pkg/audiomgr"
)

// DefaultPrefix is the key prefix used when none is configured.
var DefaultPrefix = Key{"focus"}

var _ audiomgr.Recorder = (*Journal)(nil)

// Config configures a Journal.
type Config struct {
	// Store is the storage backend. Required.
	Store Store

	// Prefix namespaces all keys. Defaults to DefaultPrefix.
	Prefix Key

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Journal records and queries manager events.
type Journal struct {
	store  Store
	prefix Key
	logger *slog.Logger
}

// New creates a Journal.
func New(cfg Config) (*Journal, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("journal: store is required")
	}
	prefix := cfg.Prefix
	if len(prefix) == 0 {
		prefix = DefaultPrefix
	}
	for _, seg := range prefix {
		if seg == "" || strings.ContainsRune(seg, separator) {
			return nil, fmt.Errorf("journal: invalid prefix segment %q", seg)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{store: cfg.Store, prefix: slices.Clone(prefix), logger: logger}, nil
}

// Store returns the underlying store.
func (j *Journal) Store() Store {
	return j.store
}

// Record stores ev. Missing ids and timestamps are filled in.
func (j *Journal) Record(ctx context.Context, ev audiomgr.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if strings.ContainsRune(ev.ID, separator) {
		return fmt.Errorf("journal: invalid event id %q", ev.ID)
	}
	if ev.Time == 0 {
		ev.Time = time.Now().UnixNano()
	}
	data, err := msgpack.Marshal(ev)
	if err != nil {
		return fmt.Errorf("journal: encode event: %w", err)
	}
	key := eventKey(j.prefix, ev.Time, ev.ID)
	ref := key[len(j.prefix)+1 : len(j.prefix)+3].String()
	err = j.store.BatchSet(ctx, []Entry{
		{Key: key, Value: data},
		{Key: idKey(j.prefix, ev.ID), Value: []byte(ref)},
	})
	if err != nil {
		return fmt.Errorf("journal: record event: %w", err)
	}
	return nil
}

// Get returns the event with the given id.
func (j *Journal) Get(ctx context.Context, id string) (audiomgr.Event, error) {
	ref, err := j.store.Get(ctx, idKey(j.prefix, id))
	if err != nil {
		return audiomgr.Event{}, err
	}
	key := append(eventPrefix(j.prefix), strings.Split(string(ref), string(separator))...)
	data, err := j.store.Get(ctx, append(key, id))
	if err != nil {
		return audiomgr.Event{}, err
	}
	var ev audiomgr.Event
	if err := msgpack.Unmarshal(data, &ev); err != nil {
		return audiomgr.Event{}, fmt.Errorf("journal: decode event %s: %w", id, err)
	}
	return ev, nil
}

// Recent returns the n most recent events, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]audiomgr.Event, error) {
	if n <= 0 {
		return nil, nil
	}
	prefix := eventPrefix(j.prefix)
	out := make([]audiomgr.Event, 0, min(n, 256))
	err := j.decode(prefix, j.store.ListReverse(ctx, prefix), func(ev audiomgr.Event) bool {
		out = append(out, ev)
		return len(out) < n
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Range returns events with from <= time < to, oldest first. A zero to means
// no upper bound.
func (j *Journal) Range(ctx context.Context, from, to time.Time) ([]audiomgr.Event, error) {
	lo := from.UnixNano()
	if from.IsZero() {
		lo = 0
	}
	var out []audiomgr.Event
	err := j.scan(ctx, eventPrefix(j.prefix), func(ev audiomgr.Event) bool {
		if !to.IsZero() && ev.Time >= to.UnixNano() {
			return false
		}
		if ev.Time >= lo {
			out = append(out, ev)
		}
		return true
	})
	return out, err
}

// Day returns the events recorded on the UTC day of t, oldest first.
func (j *Journal) Day(ctx context.Context, t time.Time) ([]audiomgr.Event, error) {
	var out []audiomgr.Event
	err := j.scan(ctx, datePrefix(j.prefix, t), func(ev audiomgr.Event) bool {
		out = append(out, ev)
		return true
	})
	return out, err
}

// ByClient returns the events of one client, oldest first.
func (j *Journal) ByClient(ctx context.Context, client string) ([]audiomgr.Event, error) {
	var out []audiomgr.Event
	err := j.scan(ctx, eventPrefix(j.prefix), func(ev audiomgr.Event) bool {
		if ev.Client == client {
			out = append(out, ev)
		}
		return true
	})
	return out, err
}

// Prune deletes events older than before and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int, error) {
	limit := before.UnixNano()
	var keys []Key
	for entry, err := range j.store.List(ctx, eventPrefix(j.prefix)) {
		if err != nil {
			return 0, fmt.Errorf("journal: prune: %w", err)
		}
		ts, id, err := parseEventKey(entry.Key, len(j.prefix))
		if err != nil {
			j.logger.Warn("journal: skipping key", "key", entry.Key.String(), "error", err)
			continue
		}
		if ts >= limit {
			break
		}
		keys = append(keys, entry.Key, idKey(j.prefix, id))
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := j.store.BatchDelete(ctx, keys); err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	return len(keys) / 2, nil
}

// Close closes the underlying store.
func (j *Journal) Close() error {
	return j.store.Close()
}

// scan decodes events under prefix in key order until fn returns false.
// Malformed entries are logged and skipped.
func (j *Journal) scan(ctx context.Context, prefix Key, fn func(audiomgr.Event) bool) error {
	return j.decode(prefix, j.store.List(ctx, prefix), fn)
}

func (j *Journal) decode(prefix Key, entries iter.Seq2[Entry, error], fn func(audiomgr.Event) bool) error {
	for entry, err := range entries {
		if err != nil {
			return fmt.Errorf("journal: list %s: %w", prefix, err)
		}
		var ev audiomgr.Event
		if err := msgpack.Unmarshal(entry.Value, &ev); err != nil {
			j.logger.Warn("journal: skipping malformed event", "key", entry.Key.String(), "error", err)
			continue
		}
		if !fn(ev) {
			return nil
		}
	}
	return nil
}
