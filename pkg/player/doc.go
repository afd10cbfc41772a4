// Package player is a small reference playback engine for focus-managed
// sessions.
//
// A [Player] mixes the audio of all playing [Session] values into a single
// 16-bit mono stream read through [Player.Read]. Each session reports its
// play intent to a [Delegate] (usually a focus.Arbiter) and is paused or
// resumed by it through the focus.Session methods:
//
//	p := player.New(player.L16Mono16K)
//	s, _ := p.NewSession(src, player.WithDelegate(arbiter))
//	s.Start()
//	io.Copy(out, p)
//
// Paused sessions contribute silence and their sources are not drained.
package player
