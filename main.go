package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tuboc/superchip8/beeper"
	e "github.com/tuboc/superchip8/emulator"
	"github.com/tuboc/superchip8/host"
	"github.com/tuboc/superchip8/runner"
)

var (
	filename = flag.String("f", "", "chip8 image file path (or first argument)")
	variant  = flag.String("variant", "schip", "instruction set: chip8 or schip")
	hz       = flag.Int("hz", 0, "instructions per second, 0 uses the variant default")
	stepMode = flag.Bool("s", false, "start with stepMode")
	scale    = flag.Int("scale", host.DefaultScale, "window pixels per machine pixel at the largest resolution")
	headless = flag.Bool("headless", false, "render to the terminal instead of a window")
	duration = flag.Duration("duration", 0, "stop after this long, 0 runs until quit")
	wavFile  = flag.String("wav", "", "record the buzzer to this WAV file")
	seed     = flag.Int64("seed", 0, "random seed, 0 seeds from the clock")
	pitch    = flag.Int("pitch", beeper.DefaultPitch, "buzzer pitch in Hz")
	mute     = flag.Bool("mute", false, "no audio device")
	verbose  = flag.Bool("v", false, "debug logging")
	quiet    = flag.Bool("q", false, "only log warnings and errors")
)

func init() {
	// SDL calls have to come from the main thread
	runtime.LockOSThread()
}

func main() {
	flag.Parse()
	setupLogging()

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	switch {
	case *verbose:
		log.SetLevel(log.DebugLevel)
	case *quiet:
		log.SetLevel(log.WarnLevel)
	}
	if *headless {
		// keep the terminal for the screen
		log.SetOutput(os.Stderr)
	}
}

func run() error {
	path := *filename
	if path == "" {
		path = flag.Arg(0)
	}
	if path == "" {
		flag.Usage()
		os.Exit(2)
	}

	v, err := e.ParseVariant(*variant)
	if err != nil {
		return err
	}
	rom, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	opts := []e.Option{e.WithLogger(log.StandardLogger())}
	if *seed != 0 {
		opts = append(opts, e.WithSeed(*seed))
	}
	cpu := e.New(v, opts...)
	if err := cpu.LoadROM(bytes.NewReader(rom)); err != nil {
		return err
	}
	log.WithFields(log.Fields{"rom": path, "bytes": len(rom)}).Info("loaded")

	var speakers []runner.Speaker
	var h runner.Host
	if *headless {
		t := host.NewTerminal(os.Stdout, os.Stdin, log.StandardLogger())
		if err := t.Attach(int(os.Stdin.Fd()), int(os.Stdout.Fd())); err != nil {
			return err
		}
		h = t
	} else {
		s, err := host.NewSDL(host.SDLConfig{Variant: v, Scale: *scale, Pitch: *pitch, Mute: *mute, Logger: log.StandardLogger()})
		if err != nil {
			return err
		}
		h = s
		speakers = append(speakers, s)
	}
	defer h.Close()

	if *wavFile != "" {
		f, err := os.Create(*wavFile)
		if err != nil {
			return err
		}
		rec := beeper.NewRecorder(f, *pitch, log.StandardLogger())
		defer func() {
			if err := rec.Close(); err != nil {
				log.Error(err)
			}
			f.Close()
		}()
		speakers = append(speakers, rec)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	r := runner.New(cpu, rom, h, runner.Config{
		Hz:       *hz,
		StepMode: *stepMode,
		Speakers: speakers,
		Logger:   log.StandardLogger(),
	})
	start := time.Now()
	err = r.Run(ctx)
	log.Debugf("ran for %v", time.Since(start).Round(time.Millisecond))
	return err
}
