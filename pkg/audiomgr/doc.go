// Package audiomgr implements an in-process, system-wide audio focus service.
//
// A [Manager] keeps a focus stack of [focus.Request] values. The top of the
// stack holds focus. A new request notifies the current holders according to
// its gain kind:
//
//   - focus.Gain: every other holder loses focus permanently and is removed.
//   - focus.GainTransient, focus.GainTransientExclusive: the top loses focus
//     transiently.
//   - focus.GainTransientMayDuck: the top loses focus transiently and may duck.
//
// Abandoning the top request gives focus back to the next request on the
// stack. [Manager.Lock] models an exclusive system owner such as a phone call:
// while locked, requests are delayed (if they accept a delayed grant) or
// denied.
//
// Focus changes are delivered on a dispatcher goroutine, never from inside
// RequestFocus or AbandonFocus, so listeners may call back into the manager.
// Every request, abandon, change and lock is also published as an [Event] to
// subscribers and to an optional [Recorder].
package audiomgr
