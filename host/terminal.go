package host

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/tuboc/superchip8/emulator"
	"github.com/tuboc/superchip8/runner"
)

// DefaultHold is how long a typed key stays pressed. Terminals only report
// key presses, so releases are synthesized.
const DefaultHold = 120 * time.Millisecond

const (
	ansiClear = "\x1b[2J"
	ansiHome  = "\x1b[H"
)

// Terminal renders the screen with half block characters and reads keys
// from a byte stream. It runs without a window or an audio device.
type Terminal struct {
	out  io.Writer
	keys chan rune
	done chan struct{}
	hold time.Duration
	now  func() time.Time

	// closed when the input goroutine returns
	stopped chan struct{}

	release [emulator.NumKeys]time.Time

	ansi    bool
	started bool
	raw     *term.State
	rawFd   int
	log     logrus.FieldLogger
}

// NewTerminal writes frames to out and reads keypad input from in, which
// may be nil.
func NewTerminal(out io.Writer, in io.Reader, log logrus.FieldLogger) *Terminal {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := &Terminal{
		out:  out,
		keys: make(chan rune, 64),
		done: make(chan struct{}),
		hold: DefaultHold,
		now:  time.Now,
		log:  log.WithField("component", "terminal"),

		stopped: make(chan struct{}),
	}
	if in != nil {
		go t.read(in)
	} else {
		close(t.stopped)
	}
	return t
}

// Attach switches to cursor addressed output when outFd is a terminal and
// puts inFd into raw mode when it is one. Pass -1 to skip either.
func (t *Terminal) Attach(inFd, outFd int) error {
	if outFd >= 0 && term.IsTerminal(outFd) {
		t.ansi = true
		if w, h, err := term.GetSize(outFd); err == nil {
			if w < emulator.HighResW || h < emulator.HighResH/2 {
				t.log.Warnf("terminal is %dx%d, high resolution needs %dx%d", w, h, emulator.HighResW, emulator.HighResH/2)
			}
		}
	}
	if inFd >= 0 && term.IsTerminal(inFd) {
		st, err := term.MakeRaw(inFd)
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		t.raw = st
		t.rawFd = inFd
	}
	return nil
}

func (t *Terminal) read(in io.Reader) {
	defer close(t.stopped)
	r := bufio.NewReader(in)
	for {
		c, _, err := r.ReadRune()
		if err != nil {
			if err != io.EOF {
				t.log.WithError(err).Debug("input closed")
			}
			return
		}
		select {
		case t.keys <- c:
		case <-t.done:
			return
		}
	}
}

// Poll applies typed characters. Space steps, Enter resumes, Backspace
// resets, Escape or Ctrl-C quits.
func (t *Terminal) Poll(k runner.KeySetter) runner.Controls {
	var c runner.Controls
	now := t.now()

	for drained := false; !drained; {
		select {
		case r := <-t.keys:
			if i, ok := RuneKey(r); ok {
				k.SetKey(i, true)
				t.release[i] = now.Add(t.hold)
				continue
			}
			switch r {
			case ' ':
				c.Step = true
			case '\r', '\n':
				c.Resume = true
			case 0x7f, 0x08:
				c.Reset = true
			case 0x1b, 0x03:
				c.Quit = true
			}
		default:
			drained = true
		}
	}

	for i, at := range t.release {
		if !at.IsZero() && !now.Before(at) {
			k.SetKey(uint8(i), false)
			t.release[i] = time.Time{}
		}
	}
	return c
}

func (t *Terminal) Present(s emulator.Screen) error {
	var b strings.Builder
	if t.ansi {
		if !t.started {
			b.WriteString(ansiClear)
		}
		b.WriteString(ansiHome)
	}
	t.started = true
	b.WriteString(Render(s))
	if !t.ansi {
		b.WriteByte('\n')
	}
	_, err := io.WriteString(t.out, b.String())
	return err
}

// Close stops input handling and restores the terminal mode. The input
// goroutine exits at its next rune, or as soon as a pending Read returns.
func (t *Terminal) Close() error {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	if t.raw != nil {
		err := term.Restore(t.rawFd, t.raw)
		t.raw = nil
		return err
	}
	return nil
}

// Render draws the visible area of s with two pixel rows per text line.
func Render(s emulator.Screen) string {
	var b strings.Builder
	for y := 0; y < s.Height; y += 2 {
		for x := 0; x < s.Width; x++ {
			top := s.Buffer.Pixel(x, y)
			bottom := y+1 < s.Height && s.Buffer.Pixel(x, y+1)
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteString("\r\n")
	}
	return b.String()
}
