package cpu

import (
	"iter"
)

// Opcode is a line of assembled code with its source location and
// generated bytes.
type Opcode struct {
	LineNo    int      // Source line number.
	Addr      int      // Memory address of the first byte.
	Words     []string // Source words, after equate expansion.
	Bytes     []byte   // Generated bytes.
	LinkLabel string   // Label to link into a 12-bit address field.
}

type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int // Byte offset into the Opcode.
}

// Debug finds the opcode that generated the byte at addr.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(addr) >= op.Addr && int(addr) < op.Addr+len(op.Bytes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr) - op.Addr,
			}
			break
		}
	}

	return
}

// LineNo returns the source line of the byte at addr, or 0 if unknown.
func (prog *Program) LineNo(addr uint16) int {
	dbg := prog.Debug(addr)
	if dbg.Opcode == nil {
		return 0
	}
	return dbg.LineNo
}

// Binary returns the ROM image of the program, to be loaded at
// PROGRAM_START. Gaps are zero filled.
func (prog *Program) Binary() (rom []byte) {
	for addr, value := range prog.Bytes() {
		offset := int(addr) - PROGRAM_START
		if offset < 0 {
			continue
		}
		for len(rom) <= offset {
			rom = append(rom, 0)
		}
		rom[offset] = value
	}

	return
}

// Bytes iterates over every generated byte and its address.
func (prog *Program) Bytes() iter.Seq2[uint16, byte] {
	return func(yield func(addr uint16, value byte) bool) {
		for _, op := range prog.Opcodes {
			for n, value := range op.Bytes {
				if !yield(uint16(op.Addr+n), value) {
					return
				}
			}
		}
	}
}
