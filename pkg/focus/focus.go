package focus

import "encoding/json"

// Result is the synchronous outcome of a focus request.
type Result int

const (
	// Failed is returned when the service could not process the request.
	Failed Result = iota
	// Granted means the requester now holds focus.
	Granted
	// Delayed means focus will be granted later with a Gained notification.
	Delayed
	// Denied means focus was refused.
	Denied
)

// String returns the string representation of the result.
func (r Result) String() string {
	switch r {
	case Granted:
		return "granted"
	case Delayed:
		return "delayed"
	case Denied:
		return "denied"
	default:
		return "failed"
	}
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "granted":
		*r = Granted
	case "delayed":
		*r = Delayed
	case "denied":
		*r = Denied
	default:
		*r = Failed
	}
	return nil
}

// Change is an asynchronous focus notification.
type Change int

const (
	ChangeNone Change = iota
	// Gained means focus was granted or given back.
	Gained
	// LostPermanent means another client took focus for good.
	LostPermanent
	// LostTransient means focus was taken for a short while.
	LostTransient
	// LostTransientCanDuck means focus was taken for a short while and the
	// loser may keep playing at reduced volume.
	LostTransientCanDuck
)

// String returns the string representation of the change.
func (c Change) String() string {
	switch c {
	case Gained:
		return "gained"
	case LostPermanent:
		return "lost"
	case LostTransient:
		return "lost_transient"
	case LostTransientCanDuck:
		return "lost_transient_can_duck"
	default:
		return "none"
	}
}

// MarshalJSON implements json.Marshaler.
func (c Change) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Change) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	*c = ParseChange(name)
	return nil
}

// ParseChange returns the change named s, or ChangeNone.
func ParseChange(s string) Change {
	switch s {
	case "gained":
		return Gained
	case "lost":
		return LostPermanent
	case "lost_transient":
		return LostTransient
	case "lost_transient_can_duck":
		return LostTransientCanDuck
	default:
		return ChangeNone
	}
}

// IsLoss reports whether c takes focus away.
func (c Change) IsLoss() bool {
	return c == LostPermanent || c == LostTransient || c == LostTransientCanDuck
}

// GainKind is the kind of focus a request asks for.
type GainKind int

const (
	// Gain asks for focus for an unknown, usually long, duration.
	Gain GainKind = iota
	// GainTransient asks for focus for a short duration.
	GainTransient
	// GainTransientMayDuck asks for focus for a short duration and lets the
	// previous holder keep playing at reduced volume.
	GainTransientMayDuck
	// GainTransientExclusive asks for focus for a short duration during which
	// nobody else should play.
	GainTransientExclusive
)

// String returns the string representation of the gain kind.
func (g GainKind) String() string {
	switch g {
	case GainTransient:
		return "transient"
	case GainTransientMayDuck:
		return "transient_may_duck"
	case GainTransientExclusive:
		return "transient_exclusive"
	default:
		return "gain"
	}
}

// MarshalJSON implements json.Marshaler.
func (g GainKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *GainKind) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	*g = ParseGainKind(name)
	return nil
}

// ParseGainKind returns the gain kind named s. Unknown names map to Gain.
func ParseGainKind(s string) GainKind {
	switch s {
	case "transient":
		return GainTransient
	case "transient_may_duck":
		return GainTransientMayDuck
	case "transient_exclusive":
		return GainTransientExclusive
	default:
		return Gain
	}
}

// Usage describes why audio is played.
type Usage int

const (
	UsageUnknown Usage = iota
	UsageMedia
	UsageVoiceCommunication
	UsageAlarm
	UsageNotification
	UsageAssistant
)

// ContentType describes what kind of audio is played.
type ContentType int

const (
	ContentUnknown ContentType = iota
	ContentSpeech
	ContentMusic
	ContentMovie
	ContentSonification
)

// Attributes describe the audio stream a request is made for.
type Attributes struct {
	Usage       Usage
	ContentType ContentType
}

// Request is a focus request descriptor. The same *Request must be passed to
// Service.AbandonFocus that was passed to Service.RequestFocus; services match
// requests by pointer identity.
type Request struct {
	// ClientID optionally names the requester in service bookkeeping.
	ClientID string

	Gain       GainKind
	Attributes Attributes

	// AcceptsDucking reports whether the requester lets the service lower its
	// volume instead of notifying a transient loss.
	AcceptsDucking bool

	// AcceptsDelayedGain reports whether the requester handles a Delayed
	// result followed by a later Gained notification.
	AcceptsDelayedGain bool

	// Listener receives focus changes for this request.
	Listener Listener
}

// Service is the shared focus arbiter.
type Service interface {
	// RequestFocus asks for focus. It must not call req.Listener before
	// returning.
	RequestFocus(req *Request) Result

	// AbandonFocus gives back focus obtained by req, or cancels a delayed
	// request.
	AbandonFocus(req *Request)
}

// Listener receives focus changes.
type Listener interface {
	OnFocusChange(change Change)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Change)

// OnFocusChange implements Listener.
func (f ListenerFunc) OnFocusChange(c Change) {
	f(c)
}

// Session is a playback target controlled by an Arbiter. Play and Pause must
// be idempotent and safe to call on a session that already stopped.
type Session interface {
	Play()
	Pause()

	// IsActive reports whether the session can still be controlled.
	IsActive() bool
}
