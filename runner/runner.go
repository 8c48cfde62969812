// Package runner drives a machine in real time: it paces instructions, ticks
// the 60 Hz timers, feeds input and hands frames to a host.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tuboc/superchip8/clock"
	"github.com/tuboc/superchip8/emulator"
)

const (
	TimerHz = 60

	// MaxFrameTime caps the wall time consumed by one Update. Anything beyond
	// it, a debugger pause or a suspended laptop, is dropped.
	MaxFrameTime = 250 * time.Millisecond

	pollInterval = time.Millisecond
)

// ErrQuit is returned by Update when the host asked to stop.
var ErrQuit = errors.New("quit requested")

// KeySetter receives keypad changes from a host.
type KeySetter interface {
	SetKey(k uint8, pressed bool)
}

// Controls are the non-keypad requests collected by a host since the last
// poll.
type Controls struct {
	Quit bool
	// Reset reloads the ROM into a freshly reset machine.
	Reset bool
	// Step enters single step mode, or executes one instruction when
	// already in it.
	Step bool
	// Resume leaves single step mode.
	Resume bool
	// Suspended is true while the host does not want the machine to run,
	// for example when its window lost focus.
	Suspended bool
}

type Host interface {
	Poll(KeySetter) Controls
	Present(emulator.Screen) error
	Close() error
}

// Speaker is told once per timer tick whether the buzzer sounds.
type Speaker interface {
	Play(on bool) error
}

type Config struct {
	// Hz overrides the variant's instruction rate when positive.
	Hz       int
	StepMode bool
	Speakers []Speaker
	Logger   logrus.FieldLogger
}

type Runner struct {
	cpu      *emulator.Chip8
	rom      []byte
	host     Host
	speakers []Speaker

	cpuClock   *clock.Pacer
	timerClock *clock.Pacer

	stepMode  bool
	suspended bool

	log logrus.FieldLogger
	now func() time.Time
}

// New wraps a machine that already has rom loaded. rom is kept to reload it
// on reset.
func New(cpu *emulator.Chip8, rom []byte, host Host, cfg Config) *Runner {
	hz := cfg.Hz
	if hz <= 0 {
		hz = cpu.Quirks().CyclesPerSecond
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		cpu:        cpu,
		rom:        rom,
		host:       host,
		speakers:   cfg.Speakers,
		cpuClock:   clock.NewPacer(hz),
		timerClock: clock.NewPacer(TimerHz),
		stepMode:   cfg.StepMode,
		log:        log.WithField("component", "runner"),
		now:        time.Now,
	}
}

func (r *Runner) StepMode() bool  { return r.stepMode }
func (r *Runner) Suspended() bool { return r.suspended }

// Run calls Update until ctx is done, the host quits, or the machine halts
// or faults. Only a fault is returned as an error.
func (r *Runner) Run(ctx context.Context) error {
	r.log.WithFields(logrus.Fields{
		"variant": r.cpu.Variant(),
		"hz":      r.cpuClock.Hz(),
	}).Info("starting")
	defer r.silence()

	t := time.NewTicker(pollInterval)
	defer t.Stop()

	last := r.now()
	for {
		now := r.now()
		err := r.Update(now.Sub(last))
		last = now

		switch {
		case errors.Is(err, ErrQuit):
			r.log.Info("quit")
			return nil
		case errors.Is(err, emulator.ErrHalted):
			r.log.Info("program exited")
			return nil
		case err != nil:
			return err
		}

		select {
		case <-ctx.Done():
			r.log.Info("interrupted")
			return nil
		case <-t.C:
		}
	}
}

// Update handles input and advances the machine by elapsed wall time.
// Instructions and timer ticks are interleaved in the order they fall due.
func (r *Runner) Update(elapsed time.Duration) error {
	if err := r.handle(r.host.Poll(r.cpu)); err != nil {
		return err
	}

	if elapsed > MaxFrameTime {
		r.log.Debugf("dropping %v of lag", elapsed-MaxFrameTime)
		elapsed = MaxFrameTime
	}
	if r.suspended {
		return nil
	}

	for elapsed > 0 {
		d := r.timerClock.Until()
		if d > elapsed {
			d = elapsed
		}
		elapsed -= d

		steps := r.cpuClock.Advance(d)
		if !r.stepMode {
			for i := 0; i < steps; i++ {
				if err := r.step(); err != nil {
					return err
				}
			}
		}

		for ticks := r.timerClock.Advance(d); ticks > 0; ticks-- {
			if err := r.tick(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) handle(c Controls) error {
	if c.Quit {
		return ErrQuit
	}
	if c.Suspended != r.suspended {
		r.suspended = c.Suspended
		r.log.Debugf("suspended: %v", r.suspended)
		if r.suspended {
			r.silence()
		}
	}

	if c.Reset {
		if err := r.reset(); err != nil {
			return err
		}
	}

	switch {
	case c.Resume && r.stepMode:
		r.stepMode = false
		r.log.Info("resumed")
	case c.Step && r.stepMode:
		if err := r.step(); err != nil {
			return err
		}
		r.dump()
		return r.present()
	case c.Step:
		r.stepMode = true
		r.log.Info("step mode")
		r.dump()
	}
	return nil
}

func (r *Runner) reset() error {
	r.cpu.Reset()
	if err := r.cpu.LoadROM(bytes.NewReader(r.rom)); err != nil {
		return fmt.Errorf("reload rom: %w", err)
	}
	r.cpuClock.Reset()
	r.timerClock.Reset()
	r.silence()
	r.log.Info("reset")
	return nil
}

func (r *Runner) step() error {
	err := r.cpu.Step()
	if err == nil || errors.Is(err, emulator.ErrHalted) {
		return err
	}
	entry := r.log.WithError(err)
	for _, t := range r.cpu.History() {
		entry.Debug(t.String())
	}
	entry.Error("machine fault")
	return err
}

// tick is one 60 Hz beat: timers, buzzer and presentation.
func (r *Runner) tick() error {
	r.cpu.DecrementTimers()
	on := r.cpu.Sound() > 0
	for _, s := range r.speakers {
		if err := s.Play(on); err != nil {
			r.log.WithError(err).Warn("speaker")
		}
	}
	return r.present()
}

func (r *Runner) present() error {
	if !r.cpu.Changed() {
		return nil
	}
	r.cpu.ClearChanged()
	if err := r.host.Present(r.cpu.Screen()); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

func (r *Runner) silence() {
	for _, s := range r.speakers {
		if err := s.Play(false); err != nil {
			r.log.WithError(err).Warn("speaker")
		}
	}
}

// dump logs the registers and the most recent instructions.
func (r *Runner) dump() {
	reg := r.cpu.Registers()
	var v strings.Builder
	for i, x := range reg.V {
		if i > 0 {
			v.WriteByte(' ')
		}
		fmt.Fprintf(&v, "V%X=%02X", i, x)
	}
	r.log.WithFields(logrus.Fields{
		"pc": fmt.Sprintf("%03X", reg.PC),
		"i":  fmt.Sprintf("%04X", reg.I),
		"sp": reg.SP,
		"dt": fmt.Sprintf("%02X", reg.DT),
		"st": fmt.Sprintf("%02X", reg.ST),
	}).Info(v.String())

	h := r.cpu.History()
	if len(h) > 0 {
		r.log.Info(h[len(h)-1].String())
	}
}
