package journal

import (
	"fmt"
	"strconv"
	"time"
)

// Key layout relative to the journal prefix:
//
//	{prefix}:evt:{YYYYMMDD}:{ts_ns}:{id}  → msgpack-encoded audiomgr.Event
//	{prefix}:eid:{id}                     → event key suffix "{YYYYMMDD}:{ts_ns}"
//
// Timestamps are zero-padded to 19 digits so lexicographic order matches
// chronological order.

const tsWidth = 19

func eventKey(prefix Key, ts int64, id string) Key {
	return append(datePrefix(prefix, time.Unix(0, ts)), fmt.Sprintf("%0*d", tsWidth, ts), id)
}

func eventPrefix(prefix Key) Key {
	k := make(Key, len(prefix), len(prefix)+1)
	copy(k, prefix)
	return append(k, "evt")
}

func datePrefix(prefix Key, day time.Time) Key {
	return append(eventPrefix(prefix), day.UTC().Format("20060102"))
}

func idKey(prefix Key, id string) Key {
	k := make(Key, len(prefix), len(prefix)+2)
	copy(k, prefix)
	return append(k, "eid", id)
}

// parseEventKey returns the timestamp and event id of an event key.
func parseEventKey(key Key, prefixLen int) (int64, string, error) {
	if len(key) != prefixLen+4 || key[prefixLen] != "evt" {
		return 0, "", fmt.Errorf("journal: malformed event key %q", key.String())
	}
	ts, err := strconv.ParseInt(key[prefixLen+2], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("journal: malformed event key timestamp: %w", err)
	}
	return ts, key[prefixLen+3], nil
}
