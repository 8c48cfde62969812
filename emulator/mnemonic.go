package emulator

import "fmt"

const OpHistoryNum = 16

// Trace is one executed instruction.
type Trace struct {
	PC      uint16
	Opcode  uint16
	Variant Variant
}

func (t Trace) String() string {
	return fmt.Sprintf("%03X-%04X %s", t.PC, t.Opcode, t.Variant.Mnemonic(t.Opcode))
}

// Mnemonic disassembles op as CHIP-8.
func Mnemonic(op uint16) string {
	return VariantChip8.Mnemonic(op)
}

// Mnemonic disassembles a single opcode for the dialect v. Opcodes with no
// meaning in either dialect come back as a data word.
func (v Variant) Mnemonic(op uint16) string {
	nnn := op & 0x0FFF
	nn := uint8(nnn & 0xff)
	x := uint8((nnn >> 8) & 0xf)
	y := uint8((nnn >> 4) & 0xf)
	n := nn & 0x0f

	switch op & 0xF000 {
	case 0x0000:
		switch {
		case op == 0x00E0:
			return "CLS"
		case op == 0x00EE:
			return "RET"
		case op == 0x00FB:
			return "SCR"
		case op == 0x00FC:
			return "SCL"
		case op == 0x00FD:
			return "EXIT"
		case op == 0x00FE:
			return "LOW"
		case op == 0x00FF:
			return "HIGH"
		case op&0xFFF0 == 0x00C0:
			return fmt.Sprintf("SCD  %d", n)
		}
	case 0x1000:
		return fmt.Sprintf("JP   #%03X", nnn)
	case 0x2000:
		return fmt.Sprintf("CALL #%03X", nnn)
	case 0x3000:
		return fmt.Sprintf("SE   V%X,#%02X", x, nn)
	case 0x4000:
		return fmt.Sprintf("SNE  V%X,#%02X", x, nn)
	case 0x5000:
		if n == 0 {
			return fmt.Sprintf("SE   V%X,V%X", x, y)
		}
	case 0x6000:
		return fmt.Sprintf("LD   V%X,#%02X", x, nn)
	case 0x7000:
		return fmt.Sprintf("ADD  V%X,#%02X", x, nn)
	case 0x8000:
		switch n {
		case 0x0:
			return fmt.Sprintf("LD   V%X,V%X", x, y)
		case 0x1:
			return fmt.Sprintf("OR   V%X,V%X", x, y)
		case 0x2:
			return fmt.Sprintf("AND  V%X,V%X", x, y)
		case 0x3:
			return fmt.Sprintf("XOR  V%X,V%X", x, y)
		case 0x4:
			return fmt.Sprintf("ADD  V%X,V%X", x, y)
		case 0x5:
			return fmt.Sprintf("SUB  V%X,V%X", x, y)
		case 0x6:
			return fmt.Sprintf("SHR  V%X,V%X", x, y)
		case 0x7:
			return fmt.Sprintf("SUBN V%X,V%X", x, y)
		case 0xE:
			return fmt.Sprintf("SHL  V%X,V%X", x, y)
		}
	case 0x9000:
		if n == 0 {
			return fmt.Sprintf("SNE  V%X,V%X", x, y)
		}
	case 0xA000:
		return fmt.Sprintf("LD   I,#%03X", nnn)
	case 0xB000:
		if v.Quirks().JumpAddsVx {
			return fmt.Sprintf("JP   V%X,#%03X", x, nnn)
		}
		return fmt.Sprintf("JP   V0,#%03X", nnn)
	case 0xC000:
		return fmt.Sprintf("RND  V%X,#%02X", x, nn)
	case 0xD000:
		return fmt.Sprintf("DRW  V%X,V%X,%d", x, y, n)
	case 0xE000:
		switch nn {
		case 0x9E:
			return fmt.Sprintf("SKP  V%X", x)
		case 0xA1:
			return fmt.Sprintf("SKNP V%X", x)
		}
	case 0xF000:
		switch nn {
		case 0x07:
			return fmt.Sprintf("LD   V%X,DT", x)
		case 0x0A:
			return fmt.Sprintf("LD   V%X,K", x)
		case 0x15:
			return fmt.Sprintf("LD   DT,V%X", x)
		case 0x18:
			return fmt.Sprintf("LD   ST,V%X", x)
		case 0x1E:
			return fmt.Sprintf("ADD  I,V%X", x)
		case 0x29:
			return fmt.Sprintf("LD   F,V%X", x)
		case 0x30:
			return fmt.Sprintf("LD   HF,V%X", x)
		case 0x33:
			return fmt.Sprintf("LD   B,V%X", x)
		case 0x55:
			return fmt.Sprintf("LD   [I],V%X", x)
		case 0x65:
			return fmt.Sprintf("LD   V%X,[I]", x)
		case 0x75:
			return fmt.Sprintf("LD   R,V%X", x)
		case 0x85:
			return fmt.Sprintf("LD   V%X,R", x)
		}
	}
	return fmt.Sprintf("DW   #%04X", op)
}
