// Package focus arbitrates audio focus on behalf of a single playback owner.
//
// An [Arbiter] sits between a playback [Session] and a shared, system-wide
// focus [Service]. On every play intent it asks the service for focus and
// either lets playback proceed, holds it until focus is granted later, or
// pauses it. Focus changes delivered by the service pause, resume or stop the
// session.
//
// The arbiter never keeps a session alive: it tracks the current session
// through a [SessionRef], typically built with [WeakRef]. A session that has
// been collected or reports itself inactive silently absorbs play and pause
// calls.
//
// Example usage:
//
//	arb := focus.New(svc, focus.WithAllowFocusManagement(true))
//
//	// From the playback layer:
//	arb.OnPlay(focus.WeakRef(session))
//	...
//	arb.OnStop(focus.WeakRef(session))
//
// The service delivers changes by calling arb.OnFocusChange from its own
// goroutine; the arbiter serializes them against intent calls.
package focus
