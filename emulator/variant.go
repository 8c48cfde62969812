package emulator

import (
	"fmt"
	"strings"
)

// Variant selects the instruction set dialect the machine emulates.
type Variant int

const (
	VariantChip8 Variant = iota + 1
	VariantSuperChip
)

func (v Variant) String() string {
	switch v {
	case VariantChip8:
		return "chip8"
	case VariantSuperChip:
		return "schip"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ParseVariant accepts the names used on the command line.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chip8", "chip-8", "1":
		return VariantChip8, nil
	case "schip", "superchip", "super-chip", "2":
		return VariantSuperChip, nil
	}
	return 0, fmt.Errorf("unknown variant %q", s)
}

// Quirks holds every behaviour that differs between the dialects. Opcodes
// consult these fields instead of checking the variant directly.
type Quirks struct {
	// 8xy6/8xyE shift Vy into Vx instead of shifting Vx in place.
	ShiftUsesVy bool
	// Bnnn adds Vx (x taken from the high nibble of nnn) instead of V0.
	JumpAddsVx bool
	// 8xy1/8xy2/8xy3 reset VF to 0.
	LogicResetsVF bool
	// Fx55/Fx65 leave I pointing past the last register transferred.
	LoadStoreAdvancesI bool
	// Dxyn clips against the viewport and honours scroll offsets. Without
	// it sprites are drawn on the low resolution plane and clamp at the
	// last column and row.
	ClipSprites bool
	// Enables 00Cn, 00FB-00FF, Fx30, Fx75 and Fx85.
	Extended bool
	// Nominal instruction rate.
	CyclesPerSecond int
}

func (v Variant) Quirks() Quirks {
	if v == VariantSuperChip {
		return Quirks{
			JumpAddsVx:      true,
			ClipSprites:     true,
			Extended:        true,
			CyclesPerSecond: 6000,
		}
	}
	return Quirks{
		ShiftUsesVy:        true,
		LogicResetsVF:      true,
		LoadStoreAdvancesI: true,
		CyclesPerSecond:    600,
	}
}
