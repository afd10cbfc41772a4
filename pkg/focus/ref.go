package focus

import "weak"

// SessionRef resolves to the session an Arbiter controls. Session returns nil
// once the session is gone or no longer active.
type SessionRef interface {
	Session() Session
}

// WeakRef returns a SessionRef that does not keep s reachable. After s is
// garbage collected, or while s reports IsActive() == false, the reference
// resolves to nil.
func WeakRef[T any, P interface {
	*T
	Session
}](s P) SessionRef {
	p := (*T)(s)
	if p == nil {
		return nilRef{}
	}
	return weakRef[T, P]{ptr: weak.Make(p)}
}

type weakRef[T any, P interface {
	*T
	Session
}] struct {
	ptr weak.Pointer[T]
}

func (r weakRef[T, P]) Session() Session {
	p := r.ptr.Value()
	if p == nil {
		return nil
	}
	s := P(p)
	if !s.IsActive() {
		return nil
	}
	return s
}

// Ref returns a SessionRef holding s strongly. It still resolves to nil while
// s is inactive. Prefer WeakRef for pointer-backed sessions.
func Ref(s Session) SessionRef {
	if s == nil {
		return nilRef{}
	}
	return strongRef{s}
}

type strongRef struct {
	s Session
}

func (r strongRef) Session() Session {
	if !r.s.IsActive() {
		return nil
	}
	return r.s
}

type nilRef struct{}

func (nilRef) Session() Session { return nil }
