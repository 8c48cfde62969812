package beeper

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
)

// Recorder captures the buzzer into a mono 16 bit WAV stream. Samples are
// kept in memory and encoded when the recorder is closed.
type Recorder struct {
	w    io.WriteSeeker
	tone *Tone
	data []int
	log  logrus.FieldLogger
}

func NewRecorder(w io.WriteSeeker, pitch int, log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{
		w:    w,
		tone: NewTone(pitch),
		log:  log.WithField("component", "wav"),
	}
}

// Play appends one tick of audio.
func (r *Recorder) Play(on bool) error {
	for _, s := range r.tone.Frame(on) {
		r.data = append(r.data, int(s))
	}
	return nil
}

// Samples is the number of samples recorded so far.
func (r *Recorder) Samples() int { return len(r.data) }

// Close encodes everything recorded. It does not close the underlying writer.
func (r *Recorder) Close() error {
	enc := wav.NewEncoder(r.w, SampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: SampleRate},
		Data:           r.data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	r.log.Debugf("wrote %d samples", len(r.data))
	return nil
}
