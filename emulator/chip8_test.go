package emulator

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// program assembles big-endian opcodes into a ROM image.
func program(ops ...uint16) []byte {
	b := make([]byte, 0, len(ops)*2)
	for _, op := range ops {
		b = append(b, byte(op>>8), byte(op))
	}
	return b
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestNewInstallsFonts(t *testing.T) {
	c := New(VariantChip8)

	assert.Equal(t, smallFont, c.mem[SmallFontOffset:SmallFontOffset+len(smallFont)])
	assert.Equal(t, bigFont, c.mem[BigFontOffset:BigFontOffset+len(bigFont)])
	assert.Equal(t, 0x140, BigFontOffset+len(bigFont))
	assert.Equal(t, uint16(ProgramOffset), c.PC())
	assert.Equal(t, Running, c.State())
}

func TestDigitAddresses(t *testing.T) {
	assert.Equal(t, uint16(0x050), SmallDigitAddr(0))
	assert.Equal(t, uint16(0x09B), SmallDigitAddr(0xf))
	assert.Equal(t, uint16(0x0A0), BigDigitAddr(0))
	assert.Equal(t, uint16(0x136), BigDigitAddr(0xf))
	assert.Equal(t, SmallDigitAddr(0x3), SmallDigitAddr(0x13))
}

func TestLoadROM(t *testing.T) {
	rom := []byte{0x12, 0x34, 0x56, 0x78, 0x9a}
	c := New(VariantChip8)

	require.NoError(t, c.LoadROM(bytesReader(rom)))
	assert.Equal(t, rom, c.mem[ProgramOffset:ProgramOffset+len(rom)])
	assert.Equal(t, uint8(0), c.mem[ProgramOffset+len(rom)])
}

func TestLoadROMMaxSize(t *testing.T) {
	rom := bytes.Repeat([]byte{0xaa}, MaxROMSize)
	c := New(VariantChip8)

	require.NoError(t, c.LoadROM(bytesReader(rom)))
	assert.Equal(t, uint8(0xaa), c.mem[MemorySize-1])
}

func TestLoadROMTooLarge(t *testing.T) {
	rom := bytes.Repeat([]byte{0xaa}, MaxROMSize+1)
	c := New(VariantChip8)

	err := c.LoadROM(bytesReader(rom))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrROMTooLarge))
	assert.Equal(t, uint8(0), c.mem[ProgramOffset])
}

func TestLoadROMReadError(t *testing.T) {
	c := New(VariantChip8)

	err := c.LoadROM(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestResetKeepsFontsAndVariant(t *testing.T) {
	c := newChip8(VariantSuperChip, program(0x00FF, 0x6A42, 0xA300, 0xFA75, 0x2400))
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Step())
	}
	c.SetKey(3, true)
	c.dt = 9
	c.st = 9
	c.hires.set(5, 5, true)

	c.Reset()

	assert.Equal(t, uint16(ProgramOffset), c.pc)
	assert.Equal(t, uint16(0), c.i)
	assert.Equal(t, [NumRegisters]uint8{}, c.v)
	assert.Equal(t, [NumRegisters]uint8{}, c.flags)
	assert.Equal(t, 0, c.sp)
	assert.False(t, c.Key(3))
	assert.Equal(t, uint8(0), c.Delay())
	assert.Equal(t, uint8(0), c.Sound())
	assert.False(t, c.HighResMode())
	assert.Equal(t, 0, c.hires.Lit())
	assert.Equal(t, uint8(0), c.mem[ProgramOffset])
	assert.Equal(t, smallFont, c.mem[SmallFontOffset:SmallFontOffset+len(smallFont)])
	assert.Equal(t, VariantSuperChip, c.Variant())
	assert.Empty(t, c.History())
}

func TestReturnWithEmptyStackFaults(t *testing.T) {
	c := newChip8(VariantChip8, program(0x00EE))

	err := c.Step()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStackUnderflow))

	var fault *Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, uint16(0x200), fault.PC)
	assert.Equal(t, uint16(0x00EE), fault.Opcode)
	assert.Equal(t, Faulted, c.State())
	assert.Equal(t, uint16(0x200), c.PC())

	// frozen until reset
	assert.Equal(t, err, c.Step())
	assert.Equal(t, uint16(0x200), c.PC())
}

func TestCallDepthOverflowFaults(t *testing.T) {
	// 200: call 200
	c := newChip8(VariantChip8, program(0x2200))
	for i := 0; i < StackDepth; i++ {
		require.NoError(t, c.Step())
	}
	assert.Equal(t, StackDepth, c.Registers().SP)

	err := c.Step()
	assert.True(t, errors.Is(err, ErrStackOverflow))
	assert.Equal(t, StackDepth, c.sp)
}

func TestCallAndReturn(t *testing.T) {
	// 200: call 206
	// 202: ld v1,#02
	// 204: jp 204
	// 206: ld v0,#01
	// 208: ret
	c := newChip8(VariantChip8, program(0x2206, 0x6102, 0x1204, 0x6001, 0x00EE))
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Step())
	}
	assert.Equal(t, uint8(1), c.v[0])
	assert.Equal(t, uint8(2), c.v[1])
	assert.Equal(t, uint16(0x204), c.pc)
	assert.Equal(t, 0, c.sp)
}

func TestSpriteReadPastMemoryFaults(t *testing.T) {
	// ld i,#FFC; drw v0,v0,8
	c := newChip8(VariantChip8, program(0xAFFC, 0xD008))
	require.NoError(t, c.Step())

	err := c.Step()
	assert.True(t, errors.Is(err, ErrMemoryFault))
	assert.Equal(t, uint16(0x202), c.PC())
	assert.Equal(t, 0, c.lores.Lit())
}

func TestRegisterDumpPastMemoryFaults(t *testing.T) {
	// ld i,#FFE; ld [i],v3
	c := newChip8(VariantChip8, program(0xAFFE, 0xF355))
	require.NoError(t, c.Step())

	err := c.Step()
	assert.True(t, errors.Is(err, ErrMemoryFault))
	assert.Equal(t, uint16(0xFFE), c.i)
}

func TestBCDAtEndOfMemory(t *testing.T) {
	// ld v0,#FF; ld i,#FFD; ld b,v0
	c := newChip8(VariantChip8, program(0x60FF, 0xAFFD, 0xF033))
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Step())
	}
	assert.Equal(t, []uint8{2, 5, 5}, c.mem[0xFFD:])
}

func TestFetchPastMemoryFaults(t *testing.T) {
	c := New(VariantChip8)
	c.pc = 0xFFF

	err := c.Step()
	assert.True(t, errors.Is(err, ErrMemoryFault))
}

func TestHaltStopsExecution(t *testing.T) {
	// exit; ld v0,#01
	c := newChip8(VariantSuperChip, program(0x00FD, 0x6001))
	require.NoError(t, c.Step())
	assert.Equal(t, Halted, c.State())
	assert.False(t, c.Running())

	before := c.Registers()
	assert.Equal(t, ErrHalted, c.Step())
	assert.Equal(t, before, c.Registers())
	assert.Equal(t, uint8(0), c.v[0])

	c.Reset()
	assert.Equal(t, Running, c.State())
}

func TestExitIgnoredOnChip8(t *testing.T) {
	c := newChip8(VariantChip8, program(0x00FD, 0x00FF, 0x00C4))
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Step())
	}
	assert.Equal(t, Running, c.State())
	assert.False(t, c.HighResMode())
	x, y := c.Scroll()
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)
}

func TestWaitForKeyPressAndRelease(t *testing.T) {
	// ld v5,k; ld v0,#01
	c := newChip8(VariantChip8, program(0xF50A, 0x6001))

	// nothing pressed: pc stays on the instruction
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Step())
		assert.Equal(t, uint16(0x200), c.PC())
		assert.True(t, c.Waiting())
	}

	c.SetKey(0xb, true)
	require.NoError(t, c.Step())
	assert.Equal(t, uint16(0x200), c.PC())
	assert.Equal(t, KeyWait{Active: true, Register: 5, Observed: true, Key: 0xb}, c.KeyWait())

	// key still held
	require.NoError(t, c.Step())
	assert.Equal(t, uint16(0x200), c.PC())
	assert.Equal(t, uint8(0), c.v[5])

	c.SetKey(0xb, false)
	require.NoError(t, c.Step())
	assert.Equal(t, uint8(0xb), c.v[5])
	assert.Equal(t, uint16(0x202), c.PC())
	assert.False(t, c.Waiting())

	require.NoError(t, c.Step())
	assert.Equal(t, uint8(1), c.v[0])
	assert.Equal(t, uint8(0xb), c.v[5])
}

func TestWaitForKeyTracksFirstObservedKey(t *testing.T) {
	c := newChip8(VariantChip8, program(0xF00A))
	c.SetKey(2, true)
	c.SetKey(9, true)
	require.NoError(t, c.Step())

	// releasing a different key does not complete the wait
	c.SetKey(9, false)
	require.NoError(t, c.Step())
	assert.True(t, c.Waiting())

	c.SetKey(2, false)
	require.NoError(t, c.Step())
	assert.False(t, c.Waiting())
	assert.Equal(t, uint8(2), c.v[0])
}

func TestTimersOnlyMoveOnDecrement(t *testing.T) {
	// ld v0,#03; ld dt,v0; ld st,v0; jp 206
	c := newChip8(VariantChip8, program(0x6003, 0xF015, 0xF018, 0x1206))
	for i := 0; i < 100; i++ {
		require.NoError(t, c.Step())
	}
	assert.Equal(t, uint8(3), c.Delay())
	assert.Equal(t, uint8(3), c.Sound())

	c.DecrementTimers()
	assert.Equal(t, uint8(2), c.Delay())
	assert.Equal(t, uint8(2), c.Sound())

	for i := 0; i < 5; i++ {
		c.DecrementTimers()
	}
	assert.Equal(t, uint8(0), c.Delay())
	assert.Equal(t, uint8(0), c.Sound())
}

func TestDrawSameSpriteTwice(t *testing.T) {
	// ld f,v0; drw v0,v1,5; drw v0,v1,5
	c := newChip8(VariantChip8, program(0xF029, 0xD015, 0xD015))
	c.v[0] = 10
	c.v[1] = 4
	require.NoError(t, c.Step())

	require.NoError(t, c.Step())
	assert.Equal(t, uint8(0), c.v[0xf])
	assert.Equal(t, 14, c.lores.Lit())
	c.ClearChanged()

	require.NoError(t, c.Step())
	assert.Equal(t, uint8(1), c.v[0xf])
	assert.Equal(t, 0, c.lores.Lit())
	assert.True(t, c.Changed())
}

func TestDrawWrapsOriginAndClampsEdges(t *testing.T) {
	c := newChip8(VariantChip8, program(0xD011))
	c.mem[0x300] = 0xff
	c.i = 0x300
	c.v[0] = 64 + 62
	c.v[1] = 32 + 31

	require.NoError(t, c.Step())

	// column 62 once, column 63 seven times
	assert.True(t, c.lores.Pixel(62, 31))
	assert.True(t, c.lores.Pixel(63, 31))
	assert.False(t, c.lores.Pixel(0, 31))
	assert.Equal(t, 2, c.lores.Lit())
	assert.Equal(t, uint8(1), c.v[0xf])
}

func TestDrawClampsLastRow(t *testing.T) {
	c := newChip8(VariantChip8, program(0xD013))
	c.mem[0x300] = 0x80
	c.mem[0x301] = 0x80
	c.mem[0x302] = 0x80
	c.i = 0x300
	c.v[0] = 0
	c.v[1] = 30

	require.NoError(t, c.Step())

	// rows 30 and 31, then row 31 again
	assert.True(t, c.lores.Pixel(0, 30))
	assert.False(t, c.lores.Pixel(0, 31))
	assert.False(t, c.lores.Pixel(0, 0))
	assert.Equal(t, uint8(1), c.v[0xf])
}

func TestSuperChipDrawClipsAtEdge(t *testing.T) {
	c := newChip8(VariantSuperChip, program(0x00FF, 0xD012))
	c.mem[0x300] = 0xff
	c.mem[0x301] = 0xff
	c.i = 0x300
	c.v[0] = 124
	c.v[1] = 63

	require.NoError(t, c.Step())
	require.NoError(t, c.Step())

	assert.Equal(t, 4, c.hires.Lit())
	for x := 124; x < 128; x++ {
		assert.True(t, c.hires.Pixel(x, 63))
	}
	assert.False(t, c.hires.Pixel(0, 0))
	assert.Equal(t, 0, c.lores.Lit())
}

func TestSuperChipLargeSprite(t *testing.T) {
	c := newChip8(VariantSuperChip, program(0x00FF, 0xD010))
	for i := 0; i < 32; i++ {
		c.mem[0x300+i] = 0xff
	}
	c.mem[0x301] = 0x00 // right half of the first row
	c.i = 0x300

	require.NoError(t, c.Step())
	require.NoError(t, c.Step())

	assert.Equal(t, 16*16-8, c.hires.Lit())
	assert.True(t, c.hires.Pixel(7, 0))
	assert.False(t, c.hires.Pixel(8, 0))
	assert.True(t, c.hires.Pixel(15, 15))
	assert.Equal(t, uint8(0), c.v[0xf])
}

func TestSuperChipLowResDrawUsesSmallViewport(t *testing.T) {
	// n=0 outside high resolution draws nothing
	c := newChip8(VariantSuperChip, program(0xD010, 0xD011))
	c.mem[0x300] = 0xff
	c.i = 0x300
	c.v[0] = 64 + 60

	require.NoError(t, c.Step())
	assert.Equal(t, 0, c.hires.Lit())

	require.NoError(t, c.Step())
	// x wraps to 60 within the 64 pixel viewport, 4 pixels clipped
	assert.Equal(t, 4, c.hires.Lit())
	assert.True(t, c.hires.Pixel(60, 0))
	assert.False(t, c.hires.Pixel(64, 0))

	s := c.Screen()
	assert.Equal(t, 64, s.Width)
	assert.Equal(t, 32, s.Height)
	assert.Same(t, c.hires, s.Buffer)
}

func TestSuperChipScrollOffsetsDrawing(t *testing.T) {
	// high; scroll left; scroll down 2; drw v0,v0,1
	c := newChip8(VariantSuperChip, program(0x00FF, 0x00FC, 0x00C2, 0xD001))
	c.mem[0x300] = 0x80
	c.i = 0x300
	c.v[0] = 10

	for i := 0; i < 4; i++ {
		require.NoError(t, c.Step())
	}
	x, y := c.Scroll()
	assert.Equal(t, 4, x)
	assert.Equal(t, -2, y)
	assert.True(t, c.hires.Pixel(14, 8))
	assert.Equal(t, 1, c.hires.Lit())
}

func TestSuperChipScrollRight(t *testing.T) {
	c := newChip8(VariantSuperChip, program(0x00FB, 0x00FB))
	require.NoError(t, c.Step())
	require.NoError(t, c.Step())
	x, _ := c.Scroll()
	assert.Equal(t, -8, x)
}

func TestResolutionFollowsMode(t *testing.T) {
	c := newChip8(VariantSuperChip, program(0x00FF, 0x00FE))
	require.NoError(t, c.Step())
	w, h := c.Resolution()
	assert.Equal(t, HighResW, w)
	assert.Equal(t, HighResH, h)

	require.NoError(t, c.Step())
	w, h = c.Resolution()
	assert.Equal(t, LowResW, w)
	assert.Equal(t, LowResH, h)


	plain := New(VariantChip8)
	assert.Same(t, plain.LowRes(), plain.Screen().Buffer)
}

func TestSeededRandomIsRepeatable(t *testing.T) {
	rom := program(0xC0FF, 0xC1FF, 0xC2FF)
	a := New(VariantChip8, WithSeed(42))
	b := New(VariantChip8, WithSeed(42))
	require.NoError(t, a.LoadROM(bytesReader(rom)))
	require.NoError(t, b.LoadROM(bytesReader(rom)))
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Step())
		require.NoError(t, b.Step())
	}
	assert.Equal(t, a.v, b.v)
}

func TestHistory(t *testing.T) {
	ops := make([]uint16, 0, 20)
	for i := 0; i < 20; i++ {
		ops = append(ops, 0x6000|uint16(i))
	}
	c := newChip8(VariantChip8, program(ops...))
	for i := 0; i < 20; i++ {
		require.NoError(t, c.Step())
	}

	h := c.History()
	require.Len(t, h, OpHistoryNum)
	assert.Equal(t, Trace{PC: 0x208, Opcode: 0x6004, Variant: VariantChip8}, h[0])
	assert.Equal(t, Trace{PC: 0x226, Opcode: 0x6013, Variant: VariantChip8}, h[OpHistoryNum-1])
	assert.Equal(t, "226-6013 LD   V0,#13", h[OpHistoryNum-1].String())
}
