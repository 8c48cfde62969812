package emulator

import (
	"errors"
	"fmt"
)

var (
	ErrROMTooLarge    = errors.New("rom too large")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrMemoryFault    = errors.New("memory access out of range")
	ErrHalted         = errors.New("machine halted")
)

// Fault is returned by Step when an instruction cannot complete. The machine
// stays frozen at the faulting instruction until Reset.
type Fault struct {
	PC      uint16
	Opcode  uint16
	Variant Variant
	Err     error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%03X-%04X %s: %v", f.PC, f.Opcode, f.Variant.Mnemonic(f.Opcode), f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}
