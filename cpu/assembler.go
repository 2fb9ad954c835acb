// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/chip8/internal"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = internal.Defines{
	"LINENO":        "0",
	"PROGRAM_START": internal.Hex(PROGRAM_START),
	"MEMORY_SIZE":   internal.Hex(MEMORY_SIZE),
	"FONT_START":    internal.Hex(FONT_START),
	"FONT_HEIGHT":   internal.Hex(FONT_HEIGHT),
}

func init() {
	mem := Memory{}
	for digit := range uint8(16) {
		sysEquate[fmt.Sprintf("FONT_%X", digit)] = internal.Hex(int(mem.Glyph(digit)))
	}
}

// Defines returns the predefined equates of the cpu.
func Defines() iter.Seq2[string, string] {
	return sysEquate.All()
}

// Assembler is a single pass macro assembler for the instruction set.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word[1 : len(word)-1])
		return
	}
	v64, err := strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)
	return
}

// regOf decodes a register name, v0 through vf.
func regOf(word string) (reg uint8, ok bool) {
	word = strings.ToLower(word)
	if len(word) != 2 || word[0] != 'v' {
		return
	}
	value, err := strconv.ParseUint(word[1:], 16, 4)
	if err != nil {
		return
	}

	return uint8(value), true
}

// reg decodes a required register.
func (asm *Assembler) reg(word string) (reg uint8, err error) {
	reg, ok := regOf(word)
	if !ok {
		err = ErrRegisterExpected
	}
	return
}

// imm8 decodes an 8-bit immediate, signed or unsigned.
func (asm *Assembler) imm8(word string) (imm uint8, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if value < -0x80 || value > 0xff {
		err = ErrValueRange
		return
	}

	imm = uint8(value)
	return
}

// nibble decodes a 4-bit immediate.
func (asm *Assembler) nibble(word string) (imm uint8, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if value < 0 || value > 0xf {
		err = ErrValueRange
		return
	}

	imm = uint8(value)
	return
}

var reLabel = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)

// addr decodes a 12-bit address, or a label to link later.
func (asm *Assembler) addr(word string) (addr uint16, label string, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		if reLabel.MatchString(word) {
			label = word
			err = nil
		}
		return
	}
	if value < 0 || value > 0xfff {
		err = ErrValueRange
		return
	}

	addr = uint16(value)
	return
}

// parentEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v int
		v, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(v)
	}
	err = nil
	for key, addr := range asm.Label {
		_, ok := pred[key]
		if !ok {
			pred[key] = starlark.MakeInt(addr)
		}
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// splitWords splits a line on blanks and commas.
func splitWords(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

var (
	reChar  = regexp.MustCompile(`'\\?[^']'`)
	reParen = regexp.MustCompile(`\$\([^\$]*\)`)
)

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reChar.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		// Local labels are unique to each expansion.
		local := fmt.Sprintf("%v_%v_", name, lineno)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddr gets the address of the next generated byte.
func (asm *Assembler) currentAddr() int {
	if len(asm.Opcode) == 0 {
		return PROGRAM_START
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Addr + len(last.Bytes)
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := splitWords(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of jump labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		addr, ok := asm.Label[label]
		if !ok {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrLabelMissing(label)
			return
		}
		if addr > 0xfff {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrValueRange
			return
		}
		if len(op.Bytes) != 2 {
			log.Fatalf("Unable to link label '%s' to line %d: %v", label, op.LineNo, op.Words)
		}
		op.Bytes[0] = (op.Bytes[0] & 0xf0) | byte(addr>>8)
		op.Bytes[1] = byte(addr)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// argcMap is the argument count of each mnemonic. jp takes one or two.
var argcMap = map[string]int{
	"cls": 0, "ret": 0,
	"sys": 1, "call": 1,
	"se": 2, "sne": 2, "ld": 2,
	"add": 2, "or": 2, "and": 2, "xor": 2, "sub": 2,
	"rnd": 2, "drw": 3,
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var bytes []byte
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	defer func() {
		if err != nil || len(bytes) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Addr: asm.currentAddr(), Words: words, Bytes: bytes, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	op := words[0]
	args := words[1:]

	// .byte VALUE...
	if op == ".byte" {
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, arg := range args {
			var value uint8
			value, err = asm.imm8(arg)
			if err != nil {
				return
			}
			bytes = append(bytes, value)
		}
		return
	}

	need, ok := argcMap[op]
	if op == "jp" {
		need, ok = 1, true
		if len(args) == 2 {
			need = 2
		}
	}
	if !ok {
		err = ErrInstructionInvalid
		return
	}
	if len(args) < need {
		err = ErrOpcodeValueMissing
		return
	}
	if len(args) > need {
		err = ErrOpcodeExtraArgs
		return
	}

	var inst Instruction
	inst, label, err = asm.instruction(op, args)
	if err != nil {
		return
	}

	word := inst.Word()
	bytes = []byte{byte(word >> 8), byte(word)}

	return
}

// instruction builds the instruction for a mnemonic and its arguments.
func (asm *Assembler) instruction(op string, args []string) (inst Instruction, label string, err error) {
	var x, y, imm uint8
	var addr uint16

	switch op {
	case "cls":
		inst = ClearDisplay{}
	case "ret":
		inst = Return{}
	case "sys":
		addr, label, err = asm.addr(args[0])
		inst = Call{Addr: addr}
	case "call":
		addr, label, err = asm.addr(args[0])
		inst = CallSubroutine{Addr: addr}
	case "jp":
		if len(args) == 1 {
			addr, label, err = asm.addr(args[0])
			inst = Goto{Addr: addr}
			break
		}
		x, err = asm.reg(args[0])
		if err != nil {
			return
		}
		if x != REG_V0 {
			err = ErrOpcodeInvalid
			return
		}
		addr, label, err = asm.addr(args[1])
		inst = GotoPlusV0{Addr: addr}
	case "se", "sne":
		x, err = asm.reg(args[0])
		if err != nil {
			return
		}
		var is_reg bool
		y, is_reg = regOf(args[1])
		switch {
		case is_reg && op == "se":
			inst = SkipIfRegistersEqual{Register1: x, Register2: y}
		case is_reg:
			err = ErrOpcodeInvalid
		default:
			imm, err = asm.imm8(args[1])
			if op == "se" {
				inst = SkipIfRegisterEquals{Register: x, Value: imm}
			} else {
				inst = SkipIfRegisterNotEquals{Register: x, Value: imm}
			}
		}
	case "ld":
		switch strings.ToLower(args[0]) {
		case "i":
			addr, label, err = asm.addr(args[1])
			inst = SetI{Addr: addr}
		case "[i]":
			x, err = asm.reg(args[1])
			inst = DumpRegisters{End: x}
		default:
			x, err = asm.reg(args[0])
			if err != nil {
				return
			}
			var is_reg bool
			y, is_reg = regOf(args[1])
			switch {
			case strings.ToLower(args[1]) == "k":
				inst = GetKey{Register: x}
			case is_reg:
				inst = CopyRegister{Dst: x, Src: y}
			default:
				imm, err = asm.imm8(args[1])
				inst = SetRegister{Register: x, Value: imm}
			}
		}
	case "add":
		x, err = asm.reg(args[0])
		if err != nil {
			return
		}
		var is_reg bool
		y, is_reg = regOf(args[1])
		if is_reg {
			inst = AddRegisters{Value: x, Operand: y}
		} else {
			imm, err = asm.imm8(args[1])
			inst = AddToRegister{Register: x, Value: imm}
		}
	case "or", "and", "xor", "sub":
		x, err = asm.reg(args[0])
		if err != nil {
			return
		}
		y, err = asm.reg(args[1])
		if err != nil {
			return
		}
		switch op {
		case "or":
			inst = BitwiseOr{Value: x, Operand: y}
		case "and":
			inst = BitwiseAnd{Value: x, Operand: y}
		case "xor":
			inst = BitwiseXor{Value: x, Operand: y}
		case "sub":
			inst = SubtractRegisters{Value: x, Operand: y}
		}
	case "rnd":
		x, err = asm.reg(args[0])
		if err != nil {
			return
		}
		imm, err = asm.imm8(args[1])
		inst = SetRegisterRandomAnd{Register: x, Mask: imm}
	case "drw":
		x, err = asm.reg(args[0])
		if err != nil {
			return
		}
		y, err = asm.reg(args[1])
		if err != nil {
			return
		}
		imm, err = asm.nibble(args[2])
		inst = Draw{X: x, Y: y, Height: imm}
	default:
		err = ErrInstructionInvalid
	}

	if err != nil {
		inst = nil
		label = ""
	}

	return
}
