package cpu

import (
	"fmt"
)

// Instruction is a decoded instruction word.
//
// The set of implementations is closed; see Decode for the encodings.
type Instruction interface {
	// Word returns the instruction encoding.
	Word() uint16
	// String returns the assembler text of the instruction.
	String() string

	instruction()
}

type ClearDisplay struct{}

type Return struct{}

// Call is the legacy machine code call; it executes as a no-op.
type Call struct{ Addr uint16 }

type Goto struct{ Addr uint16 }

type CallSubroutine struct{ Addr uint16 }

type SkipIfRegisterEquals struct{ Register, Value uint8 }

type SkipIfRegisterNotEquals struct{ Register, Value uint8 }

type SkipIfRegistersEqual struct{ Register1, Register2 uint8 }

type SetRegister struct{ Register, Value uint8 }

// AddToRegister adds an immediate, wrapping, without changing VF.
type AddToRegister struct{ Register, Value uint8 }

type CopyRegister struct{ Dst, Src uint8 }

type BitwiseOr struct{ Value, Operand uint8 }

type BitwiseAnd struct{ Value, Operand uint8 }

type BitwiseXor struct{ Value, Operand uint8 }

// AddRegisters sets VF to the carry.
type AddRegisters struct{ Value, Operand uint8 }

// SubtractRegisters sets VF to the borrow.
type SubtractRegisters struct{ Value, Operand uint8 }

type SetI struct{ Addr uint16 }

type GotoPlusV0 struct{ Addr uint16 }

type SetRegisterRandomAnd struct{ Register, Mask uint8 }

// Draw paints Height rows of sprite data at I to (VX, VY).
type Draw struct{ X, Y, Height uint8 }

// DumpRegisters stores V0 through VEnd to memory at I.
type DumpRegisters struct{ End uint8 }

// GetKey waits for a key press, storing the key in Register.
type GetKey struct{ Register uint8 }

func (ClearDisplay) instruction()            {}
func (Return) instruction()                  {}
func (Call) instruction()                    {}
func (Goto) instruction()                    {}
func (CallSubroutine) instruction()          {}
func (SkipIfRegisterEquals) instruction()    {}
func (SkipIfRegisterNotEquals) instruction() {}
func (SkipIfRegistersEqual) instruction()    {}
func (SetRegister) instruction()             {}
func (AddToRegister) instruction()           {}
func (CopyRegister) instruction()            {}
func (BitwiseOr) instruction()               {}
func (BitwiseAnd) instruction()              {}
func (BitwiseXor) instruction()              {}
func (AddRegisters) instruction()            {}
func (SubtractRegisters) instruction()       {}
func (SetI) instruction()                    {}
func (GotoPlusV0) instruction()              {}
func (SetRegisterRandomAnd) instruction()    {}
func (Draw) instruction()                    {}
func (DumpRegisters) instruction()           {}
func (GetKey) instruction()                  {}

// makeAddr encodes a class nibble and a 12-bit address.
func makeAddr(class uint16, addr uint16) uint16 {
	return class<<12 | addr&0xfff
}

// makeImm encodes a class nibble, register and 8-bit immediate.
func makeImm(class uint16, reg uint8, value uint8) uint16 {
	return class<<12 | uint16(reg&0xf)<<8 | uint16(value)
}

// makeRegs encodes a class nibble, two registers and a low nibble.
func makeRegs(class uint16, x uint8, y uint8, n uint8) uint16 {
	return class<<12 | uint16(x&0xf)<<8 | uint16(y&0xf)<<4 | uint16(n&0xf)
}

func (in ClearDisplay) Word() uint16            { return 0x00E0 }
func (in Return) Word() uint16                  { return 0x00EE }
func (in Call) Word() uint16                    { return makeAddr(0x0, in.Addr) }
func (in Goto) Word() uint16                    { return makeAddr(0x1, in.Addr) }
func (in CallSubroutine) Word() uint16          { return makeAddr(0x2, in.Addr) }
func (in SkipIfRegisterEquals) Word() uint16    { return makeImm(0x3, in.Register, in.Value) }
func (in SkipIfRegisterNotEquals) Word() uint16 { return makeImm(0x4, in.Register, in.Value) }
func (in SkipIfRegistersEqual) Word() uint16    { return makeRegs(0x5, in.Register1, in.Register2, 0x0) }
func (in SetRegister) Word() uint16             { return makeImm(0x6, in.Register, in.Value) }
func (in AddToRegister) Word() uint16           { return makeImm(0x7, in.Register, in.Value) }
func (in CopyRegister) Word() uint16            { return makeRegs(0x8, in.Dst, in.Src, 0x0) }
func (in BitwiseOr) Word() uint16               { return makeRegs(0x8, in.Value, in.Operand, 0x1) }
func (in BitwiseAnd) Word() uint16              { return makeRegs(0x8, in.Value, in.Operand, 0x2) }
func (in BitwiseXor) Word() uint16              { return makeRegs(0x8, in.Value, in.Operand, 0x3) }
func (in AddRegisters) Word() uint16            { return makeRegs(0x8, in.Value, in.Operand, 0x4) }
func (in SubtractRegisters) Word() uint16       { return makeRegs(0x8, in.Value, in.Operand, 0x5) }
func (in SetI) Word() uint16                    { return makeAddr(0xA, in.Addr) }
func (in GotoPlusV0) Word() uint16              { return makeAddr(0xB, in.Addr) }
func (in SetRegisterRandomAnd) Word() uint16    { return makeImm(0xC, in.Register, in.Mask) }
func (in Draw) Word() uint16                    { return makeRegs(0xD, in.X, in.Y, in.Height) }
func (in DumpRegisters) Word() uint16           { return makeImm(0xF, in.End, 0x55) }
func (in GetKey) Word() uint16                  { return makeImm(0xF, in.Register, 0x0A) }

func (in ClearDisplay) String() string { return "cls" }
func (in Return) String() string       { return "ret" }
func (in Call) String() string         { return fmt.Sprintf("sys %#03x", in.Addr) }
func (in Goto) String() string         { return fmt.Sprintf("jp %#03x", in.Addr) }
func (in CallSubroutine) String() string {
	return fmt.Sprintf("call %#03x", in.Addr)
}
func (in SkipIfRegisterEquals) String() string {
	return fmt.Sprintf("se v%x %#02x", in.Register, in.Value)
}
func (in SkipIfRegisterNotEquals) String() string {
	return fmt.Sprintf("sne v%x %#02x", in.Register, in.Value)
}
func (in SkipIfRegistersEqual) String() string {
	return fmt.Sprintf("se v%x v%x", in.Register1, in.Register2)
}
func (in SetRegister) String() string {
	return fmt.Sprintf("ld v%x %#02x", in.Register, in.Value)
}
func (in AddToRegister) String() string {
	return fmt.Sprintf("add v%x %#02x", in.Register, in.Value)
}
func (in CopyRegister) String() string      { return fmt.Sprintf("ld v%x v%x", in.Dst, in.Src) }
func (in BitwiseOr) String() string         { return fmt.Sprintf("or v%x v%x", in.Value, in.Operand) }
func (in BitwiseAnd) String() string        { return fmt.Sprintf("and v%x v%x", in.Value, in.Operand) }
func (in BitwiseXor) String() string        { return fmt.Sprintf("xor v%x v%x", in.Value, in.Operand) }
func (in AddRegisters) String() string      { return fmt.Sprintf("add v%x v%x", in.Value, in.Operand) }
func (in SubtractRegisters) String() string { return fmt.Sprintf("sub v%x v%x", in.Value, in.Operand) }
func (in SetI) String() string              { return fmt.Sprintf("ld i %#03x", in.Addr) }
func (in GotoPlusV0) String() string        { return fmt.Sprintf("jp v0 %#03x", in.Addr) }
func (in SetRegisterRandomAnd) String() string {
	return fmt.Sprintf("rnd v%x %#02x", in.Register, in.Mask)
}
func (in Draw) String() string {
	return fmt.Sprintf("drw v%x v%x %d", in.X, in.Y, in.Height)
}
func (in DumpRegisters) String() string { return fmt.Sprintf("ld [i] v%x", in.End) }
func (in GetKey) String() string        { return fmt.Sprintf("ld v%x k", in.Register) }

// Decode parses a big-endian instruction word.
//
// Patterns are matched on the four nibbles of the word, in table order.
// Words matching no pattern fail with *ErrUnknownInstruction.
func Decode(bytes [2]byte) (inst Instruction, err error) {
	n0 := bytes[0] >> 4
	n1 := bytes[0] & 0xf
	n2 := bytes[1] >> 4
	n3 := bytes[1] & 0xf
	addr := uint16(n1)<<8 | uint16(bytes[1])
	imm := bytes[1]

	switch n0 {
	case 0x0:
		switch {
		case n1 == 0x0 && n2 == 0xE && n3 == 0x0:
			inst = ClearDisplay{}
		case n1 == 0x0 && n2 == 0xE && n3 == 0xE:
			inst = Return{}
		default:
			inst = Call{Addr: addr}
		}
	case 0x1:
		inst = Goto{Addr: addr}
	case 0x2:
		inst = CallSubroutine{Addr: addr}
	case 0x3:
		inst = SkipIfRegisterEquals{Register: n1, Value: imm}
	case 0x4:
		inst = SkipIfRegisterNotEquals{Register: n1, Value: imm}
	case 0x5:
		if n3 == 0x0 {
			inst = SkipIfRegistersEqual{Register1: n1, Register2: n2}
		}
	case 0x6:
		inst = SetRegister{Register: n1, Value: imm}
	case 0x7:
		inst = AddToRegister{Register: n1, Value: imm}
	case 0x8:
		switch n3 {
		case 0x0:
			inst = CopyRegister{Dst: n1, Src: n2}
		case 0x1:
			inst = BitwiseOr{Value: n1, Operand: n2}
		case 0x2:
			inst = BitwiseAnd{Value: n1, Operand: n2}
		case 0x3:
			inst = BitwiseXor{Value: n1, Operand: n2}
		case 0x4:
			inst = AddRegisters{Value: n1, Operand: n2}
		case 0x5:
			inst = SubtractRegisters{Value: n1, Operand: n2}
		}
	case 0xA:
		inst = SetI{Addr: addr}
	case 0xB:
		inst = GotoPlusV0{Addr: addr}
	case 0xC:
		inst = SetRegisterRandomAnd{Register: n1, Mask: imm}
	case 0xD:
		inst = Draw{X: n1, Y: n2, Height: n3}
	case 0xF:
		switch imm {
		case 0x55:
			inst = DumpRegisters{End: n1}
		case 0x0A:
			inst = GetKey{Register: n1}
		}
	}

	if inst == nil {
		err = &ErrUnknownInstruction{Bytes: bytes}
	}

	return
}
