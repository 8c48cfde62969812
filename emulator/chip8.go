package emulator

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	MemorySize    = 4096
	ProgramOffset = 0x200
	MaxROMSize    = MemorySize - ProgramOffset
	StackDepth    = 16
	NumKeys       = 16
	NumRegisters  = 16
)

// State is the lifecycle state of the machine.
type State int

const (
	Running State = iota
	Halted
	Faulted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// KeyWait is the sub-state entered by Fx0A. Register receives Key once the
// observed key is released.
type KeyWait struct {
	Active   bool
	Register uint8
	Observed bool
	Key      uint8
}

// Screen is the framebuffer a presenter should show together with the size
// of its visible area.
type Screen struct {
	Buffer *Framebuffer
	Width  int
	Height int
}

// Registers is a snapshot of the CPU registers for debugging output.
type Registers struct {
	PC    uint16
	I     uint16
	V     [NumRegisters]uint8
	SP    int
	DT    uint8
	ST    uint8
	Stack []uint16
}

type Chip8 struct {
	mem   [MemorySize]uint8   // memory
	pc    uint16              // program counter
	v     [NumRegisters]uint8 // registers
	i     uint16              // index register
	dt    uint8               // delay timer
	st    uint8               // sound timer
	sp    int                 // stack depth
	stack [StackDepth]uint16  // stack
	keys  [NumKeys]bool       // keyboards state
	flags [NumRegisters]uint8 // Fx75/Fx85 storage

	lores   *Framebuffer
	hires   *Framebuffer
	changed bool
	highRes bool
	scrollX int
	scrollY int

	state State
	fault error
	wait  KeyWait

	variant Variant
	quirks  Quirks
	rnd     *rand.Rand
	log     *logrus.Entry

	ophistory      [OpHistoryNum]Trace
	ophistoryIndex int
	ophistoryLen   int
}

// Option configures a machine at construction.
type Option func(*Chip8)

// WithSeed seeds the random generator used by Cxkk.
func WithSeed(seed int64) Option {
	return func(c *Chip8) {
		c.rnd = rand.New(rand.NewSource(seed))
	}
}

// WithLogger sets the logger. Unknown opcodes are reported at debug level and
// every instruction at trace level.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Chip8) {
		c.log = l.WithField("component", "cpu")
	}
}

// New creates a machine for the given variant with fonts installed and
// registers at their boot values.
func New(v Variant, opts ...Option) *Chip8 {
	if v != VariantSuperChip {
		v = VariantChip8
	}
	c := &Chip8{
		variant: v,
		quirks:  v.Quirks(),
		lores:   NewFramebuffer(LowResW, LowResH),
		hires:   NewFramebuffer(HighResW, HighResH),
		log:     logrus.StandardLogger().WithField("component", "cpu"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rnd == nil {
		c.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	copy(c.mem[SmallFontOffset:], smallFont)
	copy(c.mem[BigFontOffset:], bigFont)
	c.Reset()
	return c
}

// Reset returns the machine to its boot state. Fonts and the variant are
// kept, everything from ProgramOffset up is cleared, so the ROM has to be
// loaded again.
func (c *Chip8) Reset() {
	c.pc = ProgramOffset
	c.i = 0
	c.dt = 0
	c.st = 0
	c.sp = 0
	c.stack = [StackDepth]uint16{}
	c.v = [NumRegisters]uint8{}
	c.flags = [NumRegisters]uint8{}
	c.keys = [NumKeys]bool{}
	for i := ProgramOffset; i < MemorySize; i++ {
		c.mem[i] = 0
	}

	c.lores.Clear()
	c.hires.Clear()
	c.highRes = false
	c.scrollX = 0
	c.scrollY = 0
	c.changed = true

	c.state = Running
	c.fault = nil
	c.wait = KeyWait{}

	c.ophistory = [OpHistoryNum]Trace{}
	c.ophistoryIndex = 0
	c.ophistoryLen = 0
}

// LoadROM copies a raw program image to ProgramOffset. Memory is untouched
// when the image is larger than MaxROMSize or cannot be read.
func (c *Chip8) LoadROM(r io.Reader) error {
	b, err := io.ReadAll(io.LimitReader(r, MaxROMSize+1))
	if err != nil {
		return fmt.Errorf("read rom: %w", err)
	}
	if len(b) > MaxROMSize {
		return fmt.Errorf("%w: limit is %d bytes", ErrROMTooLarge, MaxROMSize)
	}
	copy(c.mem[ProgramOffset:], b)
	return nil
}

// Step executes one instruction.
func (c *Chip8) Step() error {
	switch c.state {
	case Halted:
		return ErrHalted
	case Faulted:
		return c.fault
	}

	pc := c.pc
	op, err := c.fetchOpcode()
	if err != nil {
		return c.raise(pc, op, err)
	}
	c.record(pc, op)

	if err := c.execOpcode(op); err != nil {
		return c.raise(pc, op, err)
	}
	return nil
}

func (c *Chip8) raise(pc, op uint16, err error) error {
	c.pc = pc
	c.state = Faulted
	c.fault = &Fault{PC: pc, Opcode: op, Variant: c.variant, Err: err}
	return c.fault
}

func (c *Chip8) record(pc, op uint16) {
	t := Trace{PC: pc, Opcode: op, Variant: c.variant}
	c.ophistory[c.ophistoryIndex] = t
	c.ophistoryIndex = (c.ophistoryIndex + 1) % OpHistoryNum
	if c.ophistoryLen < OpHistoryNum {
		c.ophistoryLen++
	}
	if c.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		c.log.Trace(t.String())
	}
}

// History returns the most recently executed instructions, oldest first.
func (c *Chip8) History() []Trace {
	h := make([]Trace, 0, c.ophistoryLen)
	start := (c.ophistoryIndex - c.ophistoryLen + OpHistoryNum) % OpHistoryNum
	for i := 0; i < c.ophistoryLen; i++ {
		h = append(h, c.ophistory[(start+i)%OpHistoryNum])
	}
	return h
}

func (c *Chip8) fetchOpcode() (uint16, error) {
	if int(c.pc)+1 >= MemorySize {
		return 0, fmt.Errorf("%w: fetch at %04X", ErrMemoryFault, c.pc)
	}
	op := uint16(c.mem[c.pc])<<8 | uint16(c.mem[c.pc+1])
	c.pc += 2
	return op, nil
}

// span returns n bytes of memory starting at addr.
func (c *Chip8) span(addr uint16, n int) ([]uint8, error) {
	if int(addr)+n > MemorySize {
		return nil, fmt.Errorf("%w: %d bytes at %04X", ErrMemoryFault, n, addr)
	}
	return c.mem[int(addr) : int(addr)+n], nil
}

func (c *Chip8) updateCarryFlag(b bool) {
	if b {
		c.v[0xf] = 1
	} else {
		c.v[0xf] = 0
	}
}

func (c *Chip8) pushStack(v uint16) error {
	if c.sp >= StackDepth {
		return fmt.Errorf("%w: depth %d", ErrStackOverflow, c.sp)
	}
	c.stack[c.sp] = v
	c.sp++
	return nil
}

func (c *Chip8) popStack() (uint16, error) {
	if c.sp == 0 {
		return 0, ErrStackUnderflow
	}
	c.sp--
	return c.stack[c.sp], nil
}

func (c *Chip8) pressedAnyKey() (uint8, bool) {
	for i, v := range c.keys {
		if v {
			return uint8(i), true
		}
	}
	return 0, false
}

// DecrementTimers advances both countdowns by one 60 Hz tick.
func (c *Chip8) DecrementTimers() {
	if c.dt > 0 {
		c.dt--
	}
	if c.st > 0 {
		c.st--
	}
}

func (c *Chip8) Delay() uint8 { return c.dt }
func (c *Chip8) Sound() uint8 { return c.st }

// SetKey latches the state of hexadecimal key k.
func (c *Chip8) SetKey(k uint8, pressed bool) {
	c.keys[k&0xf] = pressed
}

func (c *Chip8) Key(k uint8) bool {
	return c.keys[k&0xf]
}

// Changed reports whether any pixel changed since ClearChanged.
func (c *Chip8) Changed() bool { return c.changed }
func (c *Chip8) ClearChanged() { c.changed = false }

func (c *Chip8) LowRes() *Framebuffer { return c.lores }
func (c *Chip8) HighRes() *Framebuffer { return c.hires }

// Resolution is the size of the active viewport.
func (c *Chip8) Resolution() (int, int) {
	if c.quirks.Extended && c.highRes {
		return HighResW, HighResH
	}
	return LowResW, LowResH
}

// Screen returns the plane drawn by the current variant.
func (c *Chip8) Screen() Screen {
	w, h := c.Resolution()
	if c.quirks.ClipSprites {
		return Screen{Buffer: c.hires, Width: w, Height: h}
	}
	return Screen{Buffer: c.lores, Width: w, Height: h}
}

func (c *Chip8) HighResMode() bool { return c.highRes }

// Scroll returns the horizontal and vertical drawing offsets.
func (c *Chip8) Scroll() (int, int) { return c.scrollX, c.scrollY }

func (c *Chip8) Variant() Variant { return c.variant }
func (c *Chip8) Quirks() Quirks { return c.quirks }
func (c *Chip8) State() State { return c.state }
func (c *Chip8) Running() bool { return c.state == Running }

// Fault returns the error that froze the machine, if any.
func (c *Chip8) Fault() error { return c.fault }

func (c *Chip8) Waiting() bool { return c.wait.Active }
func (c *Chip8) KeyWait() KeyWait { return c.wait }
func (c *Chip8) PC() uint16 { return c.pc }

func (c *Chip8) Registers() Registers {
	r := Registers{PC: c.pc, I: c.i, V: c.v, SP: c.sp, DT: c.dt, ST: c.st}
	r.Stack = append([]uint16(nil), c.stack[:c.sp]...)
	return r
}
