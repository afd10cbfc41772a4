package player

import (
	"fmt"
	"time"
)

const (
	// L16Mono16K is audio/L16; rate=16000; channels=1.
	L16Mono16K Format = iota
	// L16Mono24K is audio/L16; rate=24000; channels=1.
	L16Mono24K
	// L16Mono48K is audio/L16; rate=48000; channels=1.
	L16Mono48K
)

// Format is a 16-bit little-endian mono PCM format.
type Format int

// ParseFormat returns the format with the given sample rate.
func ParseFormat(rate int) (Format, error) {
	switch rate {
	case 16000:
		return L16Mono16K, nil
	case 24000:
		return L16Mono24K, nil
	case 48000:
		return L16Mono48K, nil
	}
	return 0, fmt.Errorf("player: unsupported sample rate %d", rate)
}

// SampleRate returns the sample rate in Hz.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	panic("player: invalid format")
}

// BytesInDuration returns the number of bytes of audio in d.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate())*d/time.Second) * 2
}

// Duration returns the duration of n bytes of audio.
func (f Format) Duration(n int64) time.Duration {
	return time.Duration(n/2) * time.Second / time.Duration(f.SampleRate())
}

func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=1", f.SampleRate())
}
