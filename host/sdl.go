package host

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tuboc/superchip8/beeper"
	"github.com/tuboc/superchip8/emulator"
	"github.com/tuboc/superchip8/runner"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	DefaultScale = 10

	audioSamples = 512
	// queuedFrames is how far ahead of the timer the buzzer is queued.
	queuedFrames = 2
)

type SDLConfig struct {
	Title   string
	// Variant decides the largest resolution the window has to hold.
	Variant emulator.Variant
	// Scale is window pixels per machine pixel at that resolution.
	Scale   int
	Pitch   int
	Mute    bool
	Logger  logrus.FieldLogger
}

// WindowSize is the window for variant v: its largest resolution times scale.
func WindowSize(v emulator.Variant, scale int) (int32, int32) {
	if scale <= 0 {
		scale = DefaultScale
	}
	if v.Quirks().Extended {
		return int32(emulator.HighResW * scale), int32(emulator.HighResH * scale)
	}
	return int32(emulator.LowResW * scale), int32(emulator.LowResH * scale)
}

// SDL is a window with keyboard input and, unless muted, a square wave
// buzzer. It must be used from the thread that created it.
type SDL struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	audio    sdl.AudioDeviceID
	tone     *beeper.Tone
	sounding bool

	logicalW, logicalH int
	focus              bool
	log                logrus.FieldLogger
}

func NewSDL(cfg SDLConfig) (*SDL, error) {
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultScale
	}
	if cfg.Title == "" {
		cfg.Title = "SUPER-CHIP"
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	flags := uint32(sdl.INIT_VIDEO | sdl.INIT_EVENTS)
	if !cfg.Mute {
		flags |= sdl.INIT_AUDIO
	}
	if err := sdl.Init(flags); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}

	s := &SDL{focus: true, log: log.WithField("component", "sdl")}

	w, h := WindowSize(cfg.Variant, cfg.Scale)
	var err error
	s.window, err = sdl.CreateWindow(cfg.Title, int32(sdl.WINDOWPOS_UNDEFINED), int32(sdl.WINDOWPOS_UNDEFINED), w, h, uint32(sdl.WINDOW_SHOWN))
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("create window: %w", err)
	}
	s.renderer, err = sdl.CreateRenderer(s.window, -1, uint32(sdl.RENDERER_ACCELERATED))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	if !cfg.Mute {
		if err := s.initAudio(cfg.Pitch); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{"width": w, "height": h}).Debug("window open")
	return s, nil
}

func (s *SDL) initAudio(pitch int) error {
	want := &sdl.AudioSpec{
		Freq:     beeper.SampleRate,
		Format:   sdl.AUDIO_S16LSB,
		Channels: 1,
		Samples:  audioSamples,
	}
	var have sdl.AudioSpec
	id, err := sdl.OpenAudioDevice("", false, want, &have, 0)
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	s.audio = id
	s.tone = beeper.NewTone(pitch)
	s.log.WithFields(logrus.Fields{"freq": have.Freq, "samples": have.Samples}).Debug("audio open")
	return nil
}

// Poll drains the SDL event queue. Keypad keys go straight to k, the rest
// become controls: Space steps, Return resumes, Backspace resets and Escape
// quits.
func (s *SDL) Poll(k runner.KeySetter) runner.Controls {
	var c runner.Controls
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch ev := event.(type) {
		case *sdl.QuitEvent:
			c.Quit = true
		case *sdl.KeyboardEvent:
			down := ev.Type == sdl.KEYDOWN
			if i, ok := ScanCodeKey(int(ev.Keysym.Scancode)); ok {
				k.SetKey(i, down)
				break
			}
			if !down || ev.Repeat != 0 {
				break
			}
			switch ev.Keysym.Scancode {
			case sdl.SCANCODE_SPACE:
				c.Step = true
			case sdl.SCANCODE_RETURN:
				c.Resume = true
			case sdl.SCANCODE_BACKSPACE:
				c.Reset = true
			case sdl.SCANCODE_ESCAPE:
				c.Quit = true
			}
		case *sdl.WindowEvent:
			switch ev.Event {
			case sdl.WINDOWEVENT_FOCUS_LOST:
				s.focus = false
			case sdl.WINDOWEVENT_FOCUS_GAINED:
				s.focus = true
			}
		}
	}
	c.Suspended = !s.focus
	return c
}

// Present draws the visible part of the screen scaled to the window.
func (s *SDL) Present(scr emulator.Screen) error {
	if scr.Width != s.logicalW || scr.Height != s.logicalH {
		if err := s.renderer.SetLogicalSize(int32(scr.Width), int32(scr.Height)); err != nil {
			return err
		}
		s.logicalW, s.logicalH = scr.Width, scr.Height
	}

	s.renderer.SetDrawColor(0, 0, 0, 255)
	s.renderer.Clear()

	s.renderer.SetDrawColor(0, 255, 0, 255)
	rects := make([]sdl.Rect, 0, 256)
	for y := 0; y < scr.Height; y++ {
		for x := 0; x < scr.Width; x++ {
			if scr.Buffer.Pixel(x, y) {
				rects = append(rects, sdl.Rect{X: int32(x), Y: int32(y), W: 1, H: 1})
			}
		}
	}
	if len(rects) > 0 {
		if err := s.renderer.FillRects(rects); err != nil {
			return err
		}
	}

	s.renderer.Present()
	return nil
}

// Play keeps a couple of frames of tone queued while on and flushes the
// queue when off.
func (s *SDL) Play(on bool) error {
	if s.tone == nil {
		return nil
	}
	if !on {
		if s.sounding {
			sdl.ClearQueuedAudio(s.audio)
			sdl.PauseAudioDevice(s.audio, true)
			s.sounding = false
		}
		return nil
	}

	frame := beeper.Bytes(s.tone.Frame(true))
	for sdl.GetQueuedAudioSize(s.audio) < uint32(queuedFrames*len(frame)) {
		if err := sdl.QueueAudio(s.audio, frame); err != nil {
			return err
		}
		frame = beeper.Bytes(s.tone.Frame(true))
	}
	if !s.sounding {
		sdl.PauseAudioDevice(s.audio, false)
		s.sounding = true
	}
	return nil
}

func (s *SDL) Close() error {
	if s.tone != nil {
		sdl.CloseAudioDevice(s.audio)
		s.tone = nil
	}
	if s.renderer != nil {
		s.renderer.Destroy()
		s.renderer = nil
	}
	if s.window != nil {
		s.window.Destroy()
		s.window = nil
	}
	sdl.Quit()
	return nil
}
