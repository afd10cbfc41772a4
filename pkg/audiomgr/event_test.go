package audiomgr_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/haivivi/audiofocus/pkg/audiomgr"
	"github.com/haivivi/audiofocus/pkg/focus"
)

func eventFields(t *testing.T, ev audiomgr.Event) map[string]any {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal %s: %v", data, err)
	}
	return m
}

func TestEventJSONFields(t *testing.T) {
	m := newTestManager(t)
	events, cancel := m.Subscribe(16)
	defer cancel()

	l := newChangeLog()
	music := l.request("music", focus.GainTransient)
	m.RequestFocus(music)
	m.AbandonFocus(music)
	m.Lock()
	m.Unlock()
	m.Sync()

	byKind := make(map[audiomgr.EventKind]map[string]any)
	timeout := time.After(time.Second)
	for len(byKind) < 4 {
		select {
		case ev := <-events:
			byKind[ev.Kind] = eventFields(t, ev)
		case <-timeout:
			t.Fatalf("timed out, got %v", byKind)
		}
	}

	req := byKind[audiomgr.EventRequest]
	if req["result"] != "granted" || req["gain"] != "transient" {
		t.Errorf("request event = %v", req)
	}
	abandon := byKind[audiomgr.EventAbandon]
	if _, ok := abandon["result"]; ok {
		t.Errorf("abandon event has a result: %v", abandon)
	}
	if abandon["gain"] != "transient" || abandon["client"] != "music" {
		t.Errorf("abandon event = %v", abandon)
	}
	for _, kind := range []audiomgr.EventKind{audiomgr.EventLock, audiomgr.EventUnlock} {
		ev := byKind[kind]
		for _, key := range []string{"result", "gain", "client", "change"} {
			if _, ok := ev[key]; ok {
				t.Errorf("%s event has %q: %v", kind, key, ev)
			}
		}
	}
}

func TestChangeEventJSON(t *testing.T) {
	ev := audiomgr.Event{
		ID:     "e1",
		Time:   1,
		Kind:   audiomgr.EventChange,
		Client: "music",
		Gain:   focus.GainTransientMayDuck,
		Change: focus.LostTransient,
	}
	got := eventFields(t, ev)
	if _, ok := got["result"]; ok {
		t.Errorf("change event has a result: %v", got)
	}
	if got["change"] != "lost_transient" || got["gain"] != "transient_may_duck" {
		t.Errorf("change event = %v", got)
	}

	var back audiomgr.Event
	data, _ := json.Marshal(ev)
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != ev {
		t.Fatalf("round trip = %+v, want %+v", back, ev)
	}
}
