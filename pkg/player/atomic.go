package player

import (
	"math"
	"sync/atomic"
)

// AtomicFloat32 is a float32 that can be read and written atomically.
type AtomicFloat32 struct {
	bits atomic.Uint32
}

func (af *AtomicFloat32) Load() float32 {
	return math.Float32frombits(af.bits.Load())
}

func (af *AtomicFloat32) Store(v float32) {
	af.bits.Store(math.Float32bits(v))
}
