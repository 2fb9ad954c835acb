package cpu

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/ezrec/chip8/video"
)

// Keypad is the source of key presses for GetKey.
type Keypad interface {
	// Poll returns the next pressed key, 0 through 15, if any.
	Poll() (key uint8, ok bool, err error)
}

// Step is the result of a single Tick.
type Step struct {
	Elapsed     time.Duration // Wall time of the step.
	Instruction Instruction   // Instruction executed, or waited on.
	Waiting     bool          // Set if suspended waiting for a key.
}

// Cpu is the simulation context of the processor.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory   *Memory      // Program and data memory.
	Register RegisterFile // V0 through VF.
	I        uint16       // Index register.
	Pc       uint16       // Program counter.
	Stack    Stack        // Return address stack.
	State    State        // Execution state.

	Display *video.Framebuffer // Shared display.
	Keypad  Keypad             // Key source for GetKey, may be nil.
	Rand    *rand.Rand         // Random source for SetRegisterRandomAnd.

	Ticks int // Instructions executed.

	halt    *ErrHalt // Reason for STATE_HALTED.
	waitReg uint8    // GetKey destination for STATE_WAITING.
	waitPc  uint16   // Address of the waiting GetKey.
}

// NewCpu creates a new Cpu drawing to display.
// If display is nil, a private framebuffer is allocated.
func NewCpu(display *video.Framebuffer) (cpu *Cpu) {
	if display == nil {
		display = video.NewFramebuffer()
	}

	cpu = &Cpu{
		Memory:  NewMemory(),
		Pc:      PROGRAM_START,
		Display: display,
		Rand:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	return
}

// String returns the current Cpu state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("% 5s: %03x\n", "pc", cpu.Pc)
	text += fmt.Sprintf("% 5s: %03x\n", "i", cpu.I)
	text += fmt.Sprintf("% 5s: %v\n", "state", cpu.State)
	for n, value := range cpu.Register.Array() {
		text += fmt.Sprintf("% 5s: %02x\n", fmt.Sprintf("v%x", n), value)
	}
	strval := "---"
	top, ok := cpu.Stack.Peek()
	if ok {
		strval = fmt.Sprintf("%03x", top)
	}
	text += fmt.Sprintf("% 5s: %v (%d)\n", "stack", strval, cpu.Stack.Depth())

	return
}

// Reset the Cpu state.
// - Sets the program counter to PROGRAM_START.
// - Empties the stack.
// - Clears any waiting or halted state.
//
// Memory, registers and the index register are left untouched.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Pc = PROGRAM_START
	cpu.Stack.Reset()
	cpu.State = STATE_RUNNING
	cpu.halt = nil
	cpu.Ticks = 0
}

// Halted returns the halt reason, or nil if the Cpu is not halted.
func (cpu *Cpu) Halted() (err error) {
	if cpu.halt != nil {
		err = cpu.halt
	}
	return
}

// halted moves the Cpu to STATE_HALTED.
func (cpu *Cpu) halted(pc uint16, inst Instruction, reason error) error {
	cpu.State = STATE_HALTED
	cpu.halt = &ErrHalt{Pc: pc, Instruction: inst, Reason: reason}

	if cpu.Verbose {
		log.Printf("cpu: %v", cpu.halt)
	}

	return cpu.halt
}

// setPc updates the program counter, which must address a full word.
func (cpu *Cpu) setPc(addr int) (err error) {
	if addr < 0 || addr+2 > MEMORY_SIZE {
		err = &ErrOutOfBounds{Address: addr}
		return
	}

	cpu.Pc = uint16(addr)
	return
}

// Tick executes a single fetch, decode, execute cycle.
//
// While waiting on GetKey, Tick polls the keypad instead. Any error halts
// the Cpu and is returned as *ErrHalt; a halted Cpu returns the same
// error until Reset.
func (cpu *Cpu) Tick() (step Step, err error) {
	start := time.Now()
	defer func() {
		step.Elapsed = time.Since(start)
	}()

	switch cpu.State {
	case STATE_HALTED:
		err = cpu.Halted()
		return
	case STATE_WAITING:
		step.Instruction = GetKey{Register: cpu.waitReg}
		step.Waiting, err = cpu.pollKey(cpu.waitReg)
		if err != nil {
			err = cpu.halted(cpu.waitPc, step.Instruction, err)
			return
		}
		if !step.Waiting {
			cpu.State = STATE_RUNNING
		}
		return
	}

	pc := cpu.Pc
	word, err := cpu.Memory.Word(pc)
	if err != nil {
		err = cpu.halted(pc, nil, err)
		return
	}

	err = cpu.setPc(int(pc) + 2)
	if err != nil {
		err = cpu.halted(pc, nil, err)
		return
	}

	inst, err := Decode(word)
	if err != nil {
		err = cpu.halted(pc, nil, err)
		return
	}

	if cpu.Verbose {
		log.Printf("%03x: %v", pc, inst)
	}

	step.Instruction = inst
	err = cpu.Execute(inst)
	if err != nil {
		err = cpu.halted(pc, inst, err)
		return
	}

	if cpu.State == STATE_WAITING {
		cpu.waitPc = pc
		step.Waiting = true
	}

	cpu.Ticks++

	return
}

// pollKey polls the keypad once, storing a pressed key into reg.
func (cpu *Cpu) pollKey(reg uint8) (waiting bool, err error) {
	if cpu.Keypad == nil {
		err = ErrKeyboard
		return
	}

	key, ok, err := cpu.Keypad.Poll()
	if err != nil {
		err = errors.Join(ErrKeyboard, err)
		return
	}

	if !ok {
		waiting = true
		return
	}

	if key > 0xf {
		err = errors.Join(ErrKeyboard, ErrInvalidRegister(key))
		return
	}

	err = cpu.Register.Set(reg, key)
	return
}

// skipIf skips the next instruction when cond is set.
func (cpu *Cpu) skipIf(cond bool) (err error) {
	if cond {
		err = cpu.setPc(int(cpu.Pc) + 2)
	}
	return
}

// binaryOp applies op to the Value and Operand registers, storing into
// Value.
func (cpu *Cpu) binaryOp(value uint8, operand uint8, op func(a, b uint8) uint8) (err error) {
	a, err := cpu.Register.Get(value)
	if err != nil {
		return
	}
	b, err := cpu.Register.Get(operand)
	if err != nil {
		return
	}

	err = cpu.Register.Set(value, op(a, b))
	return
}

// flagOp is binaryOp with a flag output. The flag is written to VF before
// the result, so a result destined for VF replaces the flag.
func (cpu *Cpu) flagOp(value uint8, operand uint8, op func(a, b uint8) (uint8, bool)) (err error) {
	a, err := cpu.Register.Get(value)
	if err != nil {
		return
	}
	b, err := cpu.Register.Get(operand)
	if err != nil {
		return
	}

	result, flag := op(a, b)
	var vf uint8
	if flag {
		vf = 1
	}

	err = cpu.Register.Set(REG_FLAG, vf)
	if err != nil {
		return
	}

	err = cpu.Register.Set(value, result)
	return
}

// draw paints a sprite from memory at I onto the display. Cells are
// overwritten, not toggled, and cells off the display are dropped.
func (cpu *Cpu) draw(inst Draw) (err error) {
	x, err := cpu.Register.Get(inst.X)
	if err != nil {
		return
	}
	y, err := cpu.Register.Get(inst.Y)
	if err != nil {
		return
	}

	cpu.Display.Update(func(px *video.Pixels) {
		for row := range int(inst.Height) {
			var bits uint8
			bits, err = cpu.Memory.Byte(cpu.I + uint16(row))
			if err != nil {
				return
			}
			for col := range 8 {
				px.Set(int(x)+col, int(y)+row, bits&(0x80>>col) != 0)
			}
		}
	})

	return
}

// Execute applies a decoded instruction. The program counter must
// already address the following instruction.
func (cpu *Cpu) Execute(inst Instruction) (err error) {
	rf := &cpu.Register

	switch in := inst.(type) {
	case ClearDisplay:
		cpu.Display.Update(func(px *video.Pixels) { px.Clear() })
	case Return:
		var addr uint16
		addr, err = cpu.Stack.Pop()
		if err != nil {
			return
		}
		err = cpu.setPc(int(addr))
	case Call:
		// Machine code calls are not supported.
	case Goto:
		err = cpu.setPc(int(in.Addr))
	case CallSubroutine:
		err = cpu.Stack.Push(cpu.Pc)
		if err != nil {
			return
		}
		err = cpu.setPc(int(in.Addr))
	case SkipIfRegisterEquals:
		var v uint8
		v, err = rf.Get(in.Register)
		if err != nil {
			return
		}
		err = cpu.skipIf(v == in.Value)
	case SkipIfRegisterNotEquals:
		var v uint8
		v, err = rf.Get(in.Register)
		if err != nil {
			return
		}
		err = cpu.skipIf(v != in.Value)
	case SkipIfRegistersEqual:
		var a, b uint8
		a, err = rf.Get(in.Register1)
		if err != nil {
			return
		}
		b, err = rf.Get(in.Register2)
		if err != nil {
			return
		}
		err = cpu.skipIf(a == b)
	case SetRegister:
		err = rf.Set(in.Register, in.Value)
	case AddToRegister:
		var v uint8
		v, err = rf.Get(in.Register)
		if err != nil {
			return
		}
		err = rf.Set(in.Register, v+in.Value)
	case CopyRegister:
		err = cpu.binaryOp(in.Dst, in.Src, func(a, b uint8) uint8 { return b })
	case BitwiseOr:
		err = cpu.binaryOp(in.Value, in.Operand, func(a, b uint8) uint8 { return a | b })
	case BitwiseAnd:
		err = cpu.binaryOp(in.Value, in.Operand, func(a, b uint8) uint8 { return a & b })
	case BitwiseXor:
		err = cpu.binaryOp(in.Value, in.Operand, func(a, b uint8) uint8 { return a ^ b })
	case AddRegisters:
		err = cpu.flagOp(in.Value, in.Operand, func(a, b uint8) (uint8, bool) {
			return a + b, uint16(a)+uint16(b) > 0xff
		})
	case SubtractRegisters:
		err = cpu.flagOp(in.Value, in.Operand, func(a, b uint8) (uint8, bool) {
			return a - b, b > a
		})
	case SetI:
		cpu.I = in.Addr
	case GotoPlusV0:
		var v0 uint8
		v0, err = rf.Get(REG_V0)
		if err != nil {
			return
		}
		err = cpu.setPc(int(in.Addr) + int(v0))
	case SetRegisterRandomAnd:
		err = rf.Set(in.Register, uint8(cpu.Rand.Uint32N(256))&in.Mask)
	case Draw:
		err = cpu.draw(in)
	case DumpRegisters:
		for reg := 0; reg <= int(in.End); reg++ {
			var v uint8
			v, err = rf.Get(uint8(reg))
			if err != nil {
				return
			}
			err = cpu.Memory.SetByte(cpu.I, v)
			if err != nil {
				return
			}
			cpu.I++
		}
	case GetKey:
		var waiting bool
		waiting, err = cpu.pollKey(in.Register)
		if err != nil {
			return
		}
		if waiting {
			cpu.State = STATE_WAITING
			cpu.waitReg = in.Register
		}
	default:
		err = ErrInstructionUnhandled
	}

	return
}
