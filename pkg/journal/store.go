package journal

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key or event does not exist.
var ErrNotFound = errors.New("journal: not found")

// separator joins key segments in storage.
const separator = ':'

// Key is a hierarchical storage key such as {"focus", "evt", "20260101", "..."}.
// Segments must not contain ':'.
type Key []string

func (k Key) String() string {
	return strings.Join(k, string(separator))
}

func (k Key) encode() []byte {
	return []byte(k.String())
}

// prefixBytes returns the encoded prefix followed by a separator, so "a:b"
// never matches "a:bc". An empty key matches everything.
func (k Key) prefixBytes() []byte {
	if len(k) == 0 {
		return nil
	}
	return append(k.encode(), separator)
}

func decodeKey(b []byte) Key {
	return Key(strings.Split(string(b), string(separator)))
}

// Entry is a key-value pair.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is the storage backend of a Journal.
type Store interface {
	// Get returns ErrNotFound if key is not present.
	Get(ctx context.Context, key Key) ([]byte, error)
	Set(ctx context.Context, key Key, value []byte) error

	// List yields entries under prefix in lexicographic key order.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// ListReverse yields entries under prefix in reverse key order.
	ListReverse(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	BatchSet(ctx context.Context, entries []Entry) error
	BatchDelete(ctx context.Context, keys []Key) error
	Close() error
}
