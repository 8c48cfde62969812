// Package host connects a machine to the outside world: a display, a
// keyboard and a speaker.
package host

import "github.com/veandco/go-sdl2/sdl"

// The hexadecimal keypad is laid out on the left block of a QWERTY keyboard:
//
//	1 2 3 C      1 2 3 4
//	4 5 6 D  ->  Q W E R
//	7 8 9 E      A S D F
//	A 0 B F      Z X C V
var scanCode2Key = map[int]uint8{
	sdl.SCANCODE_1: 0x1,
	sdl.SCANCODE_2: 0x2,
	sdl.SCANCODE_3: 0x3,
	sdl.SCANCODE_4: 0xc,
	sdl.SCANCODE_Q: 0x4,
	sdl.SCANCODE_W: 0x5,
	sdl.SCANCODE_E: 0x6,
	sdl.SCANCODE_R: 0xd,
	sdl.SCANCODE_A: 0x7,
	sdl.SCANCODE_S: 0x8,
	sdl.SCANCODE_D: 0x9,
	sdl.SCANCODE_F: 0xe,
	sdl.SCANCODE_Z: 0xa,
	sdl.SCANCODE_X: 0x0,
	sdl.SCANCODE_C: 0xb,
	sdl.SCANCODE_V: 0xf,
}

// rune2Key is the same layout for terminal input.
var rune2Key = map[rune]uint8{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xc,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xd,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xe,
	'z': 0xa, 'x': 0x0, 'c': 0xb, 'v': 0xf,
}

// ScanCodeKey maps an SDL scancode to a keypad key.
func ScanCodeKey(sc int) (uint8, bool) {
	k, ok := scanCode2Key[sc]
	return k, ok
}

// RuneKey maps a typed character to a keypad key. Case is ignored.
func RuneKey(r rune) (uint8, bool) {
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}
	k, ok := rune2Key[r]
	return k, ok
}
