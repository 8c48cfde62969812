// Package beeper synthesizes the buzzer driven by the sound timer.
package beeper

import "encoding/binary"

const (
	SampleRate = 44100
	TickRate   = 60
	// FrameSamples is one 60 Hz tick worth of audio.
	FrameSamples = SampleRate / TickRate
	Amplitude    = 5000

	DefaultPitch = 440
)

// Tone produces consecutive frames of a square wave. The phase carries over
// between frames so the waveform has no seams at tick boundaries.
type Tone struct {
	half  int // samples per half period
	phase int
}

func NewTone(pitch int) *Tone {
	if pitch <= 0 {
		pitch = DefaultPitch
	}
	half := SampleRate / (2 * pitch)
	if half < 1 {
		half = 1
	}
	return &Tone{half: half}
}

// Frame returns FrameSamples signed 16 bit samples. A silent frame resets
// the phase.
func (t *Tone) Frame(on bool) []int16 {
	f := make([]int16, FrameSamples)
	if !on {
		t.phase = 0
		return f
	}
	for i := range f {
		if (t.phase/t.half)%2 == 0 {
			f[i] = Amplitude
		} else {
			f[i] = -Amplitude
		}
		t.phase = (t.phase + 1) % (2 * t.half)
	}
	return f
}

// Bytes packs samples as little endian S16, the layout SDL's AUDIO_S16LSB
// queue expects.
func Bytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}
