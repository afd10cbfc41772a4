// Package scenario describes and runs focus arbitration scenarios.
//
// A scenario declares apps, each a playback session managed by its own
// focus.Arbiter, and plain clients that request focus directly. Steps drive
// them against a shared audiomgr.Manager and expect steps assert how often
// the arbiters paused or resumed their sessions.
//
//	name: call interrupts music
//	apps:
//	  - name: music
//	clients:
//	  - name: call
//	    gain: transient_exclusive
//	steps:
//	  - play: music
//	  - request: call
//	  - expect: {app: music, plays: 0, pauses: 1, state: paused_transient}
//	  - abandon: call
//	  - expect: {app: music, plays: 1, pauses: 1}
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by errors describing a malformed scenario.
var ErrInvalid = errors.New("scenario: invalid")

// Scenario is a scripted sequence of focus operations.
type Scenario struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// DelayedGain lets the manager delay requests while locked. Defaults to
	// true.
	DelayedGain *bool `yaml:"delayed_gain,omitempty" json:"delayed_gain,omitempty"`

	Apps    []App    `yaml:"apps" json:"apps"`
	Clients []Client `yaml:"clients,omitempty" json:"clients,omitempty"`
	Steps   []Step   `yaml:"steps" json:"steps"`
}

// App is a playback session managed by an arbiter.
type App struct {
	Name string `yaml:"name" json:"name"`
	Gain string `yaml:"gain,omitempty" json:"gain,omitempty"`

	// Allow enables focus management. Defaults to true.
	Allow *bool `yaml:"allow,omitempty" json:"allow,omitempty"`
}

// Client requests focus directly from the manager.
type Client struct {
	Name           string `yaml:"name" json:"name"`
	Gain           string `yaml:"gain,omitempty" json:"gain,omitempty"`
	AcceptsDelayed bool   `yaml:"accepts_delayed,omitempty" json:"accepts_delayed,omitempty"`
}

// Step is one operation. Exactly one field must be set.
type Step struct {
	Play    string      `yaml:"play,omitempty" json:"play,omitempty"`
	Stop    string      `yaml:"stop,omitempty" json:"stop,omitempty"`
	Kill    string      `yaml:"kill,omitempty" json:"kill,omitempty"`
	Allow   string      `yaml:"allow,omitempty" json:"allow,omitempty"`
	Deny    string      `yaml:"deny,omitempty" json:"deny,omitempty"`
	Request string      `yaml:"request,omitempty" json:"request,omitempty"`
	Abandon string      `yaml:"abandon,omitempty" json:"abandon,omitempty"`
	Lock    bool        `yaml:"lock,omitempty" json:"lock,omitempty"`
	Unlock  bool        `yaml:"unlock,omitempty" json:"unlock,omitempty"`
	Change  *ChangeStep `yaml:"change,omitempty" json:"change,omitempty"`
	Expect  *Expect     `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// ChangeStep delivers a focus change straight to an app's arbiter.
type ChangeStep struct {
	App    string `yaml:"app" json:"app"`
	Change string `yaml:"change" json:"change"`
}

// Expect asserts the cumulative calls an app's session received and,
// optionally, the arbiter state, the manager's focus holder and whether the
// app's audio reached the mix in the latest tick.
type Expect struct {
	App     string  `yaml:"app" json:"app"`
	Plays   *int    `yaml:"plays,omitempty" json:"plays,omitempty"`
	Pauses  *int    `yaml:"pauses,omitempty" json:"pauses,omitempty"`
	State   string  `yaml:"state,omitempty" json:"state,omitempty"`
	Holder  *string `yaml:"holder,omitempty" json:"holder,omitempty"`
	Audible *bool   `yaml:"audible,omitempty" json:"audible,omitempty"`
}

// Op returns the name of the operation set on s, or "" if none or more than
// one is set.
func (s Step) Op() string {
	var ops []string
	add := func(set bool, name string) {
		if set {
			ops = append(ops, name)
		}
	}
	add(s.Play != "", "play")
	add(s.Stop != "", "stop")
	add(s.Kill != "", "kill")
	add(s.Allow != "", "allow")
	add(s.Deny != "", "deny")
	add(s.Request != "", "request")
	add(s.Abandon != "", "abandon")
	add(s.Lock, "lock")
	add(s.Unlock, "unlock")
	add(s.Change != nil, "change")
	add(s.Expect != nil, "expect")
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

var gainNames = []string{"gain", "transient", "transient_may_duck", "transient_exclusive"}

var changeNames = []string{"gained", "lost", "lost_transient", "lost_transient_can_duck"}

var stateNames = []string{"idle", "playing", "delayed", "paused_transient", "paused"}

// Parse decodes a YAML scenario. Unknown fields are rejected.
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := sc.Check(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	defer f.Close()
	sc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Check verifies names and step references.
func (sc *Scenario) Check() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	apps := make(map[string]bool)
	clients := make(map[string]bool)
	for i, a := range sc.Apps {
		switch {
		case a.Name == "":
			fail("apps[%d]: missing name", i)
		case apps[a.Name]:
			fail("apps[%d]: duplicate name %q", i, a.Name)
		}
		apps[a.Name] = true
		if !validName(a.Gain, gainNames) {
			fail("apps[%d]: unknown gain %q", i, a.Gain)
		}
	}
	for i, c := range sc.Clients {
		switch {
		case c.Name == "":
			fail("clients[%d]: missing name", i)
		case apps[c.Name] || clients[c.Name]:
			fail("clients[%d]: duplicate name %q", i, c.Name)
		}
		clients[c.Name] = true
		if !validName(c.Gain, gainNames) {
			fail("clients[%d]: unknown gain %q", i, c.Gain)
		}
	}

	app := func(i int, name string) {
		if !apps[name] {
			fail("steps[%d]: unknown app %q", i, name)
		}
	}
	for i, s := range sc.Steps {
		switch s.Op() {
		case "":
			fail("steps[%d]: exactly one operation is required", i)
		case "play":
			app(i, s.Play)
		case "stop":
			app(i, s.Stop)
		case "kill":
			app(i, s.Kill)
		case "allow":
			app(i, s.Allow)
		case "deny":
			app(i, s.Deny)
		case "request", "abandon":
			name := s.Request + s.Abandon
			if !clients[name] {
				fail("steps[%d]: unknown client %q", i, name)
			}
		case "change":
			app(i, s.Change.App)
			if s.Change.Change == "" || !validName(s.Change.Change, changeNames) {
				fail("steps[%d]: unknown change %q", i, s.Change.Change)
			}
		case "expect":
			app(i, s.Expect.App)
			if !validName(s.Expect.State, stateNames) {
				fail("steps[%d]: unknown state %q", i, s.Expect.State)
			}
		}
	}
	return errors.Join(errs...)
}

func validName(name string, names []string) bool {
	return name == "" || slices.Contains(names, name)
}

func enabled(b *bool) bool {
	return b == nil || *b
}
