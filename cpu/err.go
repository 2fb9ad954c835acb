package cpu

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrStackOverflow        = errors.New(f("stack overflow"))
	ErrStackUnderflow       = errors.New(f("stack underflow"))
	ErrKeyboard             = errors.New(f("keyboard"))
	ErrInstructionUnhandled = errors.New(f("instruction unhandled"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissing      = errors.New(f("opcode missing"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrRegisterExpected   = errors.New(f("register expected"))
	ErrValueRange         = errors.New(f("value out of range"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrUnknownInstruction is returned by Decode for a word matching no
// instruction class.
type ErrUnknownInstruction struct {
	Bytes [2]byte
}

func (err *ErrUnknownInstruction) Error() string {
	return f("unknown instruction %02x%02x", err.Bytes[0], err.Bytes[1])
}

// ErrOutOfBounds is returned for any memory access, or program counter
// update, outside of the memory.
type ErrOutOfBounds struct {
	Address int
}

func (err *ErrOutOfBounds) Error() string {
	return f("address %#03x out of bounds", err.Address)
}

type ErrInvalidRegister uint8

func (er ErrInvalidRegister) Error() string {
	return f("register %d invalid", uint8(er))
}

// ErrHalt is the fatal halt reason of a Cpu. Once returned by Tick, the
// Cpu stays halted until Reset.
type ErrHalt struct {
	Pc          uint16      // Address of the failing instruction.
	Instruction Instruction // Decoded instruction, nil on fetch or decode failure.
	Reason      error
}

func (err *ErrHalt) Error() string {
	if err.Instruction == nil {
		return f("halted at %03x: %v", err.Pc, err.Reason)
	}
	return f("halted at %03x '%v': %v", err.Pc, err.Instruction, err.Reason)
}

func (err *ErrHalt) Unwrap() error {
	return err.Reason
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
