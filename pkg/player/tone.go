package player

import (
	"encoding/binary"
	"io"
	"math"
	"time"
)

// Tone returns an endless sine wave source in format f. Amplitude is clamped
// to [0, 1].
func Tone(f Format, freq float64, amplitude float32) io.Reader {
	return &tone{
		step: 2 * math.Pi * freq / float64(f.SampleRate()),
		amp:  float64(min(max(amplitude, 0), 1)),
	}
}

type tone struct {
	step  float64
	phase float64
	amp   float64
	odd   []byte
}

func (t *tone) Read(p []byte) (int, error) {
	n := 0
	if len(t.odd) > 0 && len(p) > 0 {
		p[0] = t.odd[0]
		t.odd = nil
		n = 1
	}
	var buf [2]byte
	for n < len(p) {
		v := int16(math.Sin(t.phase) * t.amp * 32767)
		t.phase = math.Mod(t.phase+t.step, 2*math.Pi)
		binary.LittleEndian.PutUint16(buf[:], uint16(v))
		if len(p)-n == 1 {
			p[n] = buf[0]
			t.odd = []byte{buf[1]}
			return len(p), nil
		}
		copy(p[n:], buf[:])
		n += 2
	}
	return n, nil
}

// Silence returns a source of d worth of silence in format f.
func Silence(f Format, d time.Duration) io.Reader {
	return io.LimitReader(zeros{}, f.BytesInDuration(d))
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
