package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/haivivi/audiofocus/pkg/audiomgr"
	"github.com/haivivi/audiofocus/pkg/focus"
)

var testEvents = []audiomgr.Event{
	{ID: "1", Time: 1, Kind: audiomgr.EventRequest, Client: "music", Result: focus.Granted},
	{ID: "2", Time: 2, Kind: audiomgr.EventChange, Client: "music", Change: focus.LostTransient},
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(testEvents, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got[1]["change"] != "lost_transient" {
		t.Fatalf("change = %v", got[1]["change"])
	}
}

func TestOutputYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(testEvents[0], OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "client: music") || !strings.Contains(out, "result: granted") {
		t.Fatalf("yaml = %s", out)
	}
}

func TestOutputJQ(t *testing.T) {
	var buf bytes.Buffer
	err := Output(testEvents, OutputOptions{Format: FormatJSON, JQ: `[.[] | select(.kind == "change") | .client]`, Writer: &buf})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[\n  \"music\"\n]" {
		t.Fatalf("jq output = %q", got)
	}
}

func TestFilterJQ(t *testing.T) {
	got, err := FilterJQ(testEvents, ".[].id")
	if err != nil {
		t.Fatalf("FilterJQ: %v", err)
	}
	list, ok := got.([]any)
	if !ok || len(list) != 2 || list[0] != "1" {
		t.Fatalf("FilterJQ = %#v", got)
	}

	got, err = FilterJQ(testEvents, "length")
	if err != nil || got != 2 {
		t.Fatalf("FilterJQ(length) = %#v, %v", got, err)
	}

	if _, err := FilterJQ(testEvents, ".[ "); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := FilterJQ(testEvents, `error("boom")`); err == nil {
		t.Fatal("expected jq error")
	}
}

func TestOutputRaw(t *testing.T) {
	var buf bytes.Buffer
	if err := Output("hello", OutputOptions{Format: FormatRaw, Writer: &buf}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if buf.String() != "hello\n" {
		t.Fatalf("raw = %q", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	if f, err := ParseOutputFormat(""); err != nil || f != FormatYAML {
		t.Fatalf("ParseOutputFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseOutputFormat("table"); err == nil {
		t.Fatal("expected error for table")
	}
	if err := Output(1, OutputOptions{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for xml")
	}
}

func TestStyles(t *testing.T) {
	s := NewStyles(DefaultTheme)
	for _, ev := range testEvents {
		line := s.Event(ev)
		if !strings.Contains(line, "music") {
			t.Fatalf("Event line = %q", line)
		}
	}
	if line := s.Call(3, "music", "pause"); !strings.Contains(line, "pause") || !strings.Contains(line, "#3") {
		t.Fatalf("Call line = %q", line)
	}
}
