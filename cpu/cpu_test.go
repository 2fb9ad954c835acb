package cpu

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/ezrec/chip8/video"
)

// testKeypad hands out queued keys, one per poll.
type testKeypad struct {
	keys  []uint8
	err   error
	polls int
}

func (kp *testKeypad) Poll() (key uint8, ok bool, err error) {
	kp.polls++
	if kp.err != nil {
		err = kp.err
		return
	}
	if len(kp.keys) == 0 {
		return
	}
	key = kp.keys[0]
	kp.keys = kp.keys[1:]
	ok = true
	return
}

// bogus is not handled by Execute.
type bogus struct{}

func (bogus) Word() uint16   { return 0xFFFF }
func (bogus) String() string { return "bogus" }
func (bogus) instruction()   {}

func assemble(program ...Instruction) (rom []byte) {
	for _, inst := range program {
		word := inst.Word()
		rom = append(rom, byte(word>>8), byte(word))
	}
	return
}

func newTestCpu(t *testing.T, program ...Instruction) (cpu *Cpu) {
	cpu = NewCpu(nil)
	cpu.Rand = rand.New(rand.NewPCG(1, 2))
	err := cpu.Memory.Load(PROGRAM_START, assemble(program...))
	if err != nil {
		t.Fatal(err)
	}
	return
}

func reg(cpu *Cpu, index uint8) uint8 {
	value, _ := cpu.Register.Get(index)
	return value
}

func TestCpu_New(t *testing.T) {
	assert := assert.New(t)

	display := video.NewFramebuffer()
	cpu := NewCpu(display)
	assert.Equal(uint16(PROGRAM_START), cpu.Pc)
	assert.Equal(STATE_RUNNING, cpu.State)
	assert.Same(display, cpu.Display)
	assert.Equal(byte(0xF0), cpu.Memory.Data[FONT_START])
	assert.Nil(cpu.Halted())

	cpu = NewCpu(nil)
	assert.NotNil(cpu.Display)
}

func TestCpu_AddRegisters(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		value   uint8
		operand uint8
		result  uint8
		flag    uint8
	}){
		{"carry", 0xFF, 0x01, 0x00, 1},
		{"no_carry", 0x01, 0x01, 0x02, 0},
		{"max", 0xFF, 0xFF, 0xFE, 1},
	}

	for _, entry := range table {
		cpu := newTestCpu(t, AddRegisters{Value: 1, Operand: 2})
		cpu.Register.Set(1, entry.value)
		cpu.Register.Set(2, entry.operand)
		cpu.Register.Set(REG_FLAG, 0x42)

		_, err := cpu.Tick()
		assert.NoError(err, entry.name)
		assert.Equal(entry.result, reg(cpu, 1), entry.name)
		assert.Equal(entry.flag, reg(cpu, REG_FLAG), entry.name)
		assert.Equal(entry.operand, reg(cpu, 2), entry.name)
	}
}

func TestCpu_SubtractRegisters(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		value   uint8
		operand uint8
		result  uint8
		flag    uint8
	}){
		{"no_borrow", 0x05, 0x03, 0x02, 0},
		{"borrow", 0x03, 0x05, 0xFE, 1},
		{"equal", 0x05, 0x05, 0x00, 0},
	}

	for _, entry := range table {
		cpu := newTestCpu(t, SubtractRegisters{Value: 1, Operand: 2})
		cpu.Register.Set(1, entry.value)
		cpu.Register.Set(2, entry.operand)

		_, err := cpu.Tick()
		assert.NoError(err, entry.name)
		assert.Equal(entry.result, reg(cpu, 1), entry.name)
		assert.Equal(entry.flag, reg(cpu, REG_FLAG), entry.name)
	}
}

func TestCpu_FlagDestination(t *testing.T) {
	assert := assert.New(t)

	// The result is stored after the flag, so it wins.
	cpu := newTestCpu(t,
		AddRegisters{Value: REG_FLAG, Operand: 1},
		SubtractRegisters{Value: REG_FLAG, Operand: 1},
	)
	cpu.Register.Set(REG_FLAG, 0xFF)
	cpu.Register.Set(1, 0x01)

	_, err := cpu.Tick()
	assert.NoError(err)
	assert.Equal(uint8(0x00), reg(cpu, REG_FLAG))

	_, err = cpu.Tick()
	assert.NoError(err)
	assert.Equal(uint8(0xFF), reg(cpu, REG_FLAG))

	// The flag is computed from the operands before the update.
	cpu = newTestCpu(t, AddRegisters{Value: 1, Operand: REG_FLAG})
	cpu.Register.Set(1, 0x80)
	cpu.Register.Set(REG_FLAG, 0x80)
	_, err = cpu.Tick()
	assert.NoError(err)
	assert.Equal(uint8(0x00), reg(cpu, 1))
	assert.Equal(uint8(1), reg(cpu, REG_FLAG))
}

func TestCpu_Registers(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t,
		SetRegister{Register: 0, Value: 0xFF},
		AddToRegister{Register: 0, Value: 0x02},
		SetRegister{Register: 1, Value: 0xF0},
		CopyRegister{Dst: 2, Src: 1},
		SetRegister{Register: 3, Value: 0x3C},
		BitwiseOr{Value: 1, Operand: 3},
		BitwiseAnd{Value: 2, Operand: 3},
		BitwiseXor{Value: 3, Operand: 0},
		SetI{Addr: 0x345},
	)
	cpu.Register.Set(REG_FLAG, 0x42)

	for range 9 {
		_, err := cpu.Tick()
		assert.NoError(err)
	}

	assert.Equal(uint8(0x01), reg(cpu, 0))
	assert.Equal(uint8(0xFC), reg(cpu, 1))
	assert.Equal(uint8(0x30), reg(cpu, 2))
	assert.Equal(uint8(0x3D), reg(cpu, 3))
	assert.Equal(uint8(0x42), reg(cpu, REG_FLAG))
	assert.Equal(uint16(0x345), cpu.I)
	assert.Equal(uint16(PROGRAM_START+9*2), cpu.Pc)
	assert.Equal(9, cpu.Ticks)
}

func TestCpu_Skip(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		inst Instruction
		skip bool
	}){
		{"se_taken", SkipIfRegisterEquals{Register: 1, Value: 0x11}, true},
		{"se_not", SkipIfRegisterEquals{Register: 1, Value: 0x12}, false},
		{"sne_taken", SkipIfRegisterNotEquals{Register: 1, Value: 0x12}, true},
		{"sne_not", SkipIfRegisterNotEquals{Register: 1, Value: 0x11}, false},
		{"ser_taken", SkipIfRegistersEqual{Register1: 1, Register2: 2}, true},
		{"ser_not", SkipIfRegistersEqual{Register1: 1, Register2: 3}, false},
	}

	for _, entry := range table {
		cpu := newTestCpu(t, entry.inst)
		cpu.Register.Set(1, 0x11)
		cpu.Register.Set(2, 0x11)
		cpu.Register.Set(3, 0x33)

		_, err := cpu.Tick()
		assert.NoError(err, entry.name)
		if entry.skip {
			assert.Equal(uint16(PROGRAM_START+4), cpu.Pc, entry.name)
		} else {
			assert.Equal(uint16(PROGRAM_START+2), cpu.Pc, entry.name)
		}
	}
}

func TestCpu_Goto(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		inst Instruction
		v0   uint8
		pc   uint16
		err  bool
	}){
		{"goto", Goto{Addr: 0x300}, 0, 0x300, false},
		{"goto_last", Goto{Addr: 0xFFE}, 0, 0xFFE, false},
		{"goto_oob", Goto{Addr: 0xFFF}, 0, 0, true},
		{"goto_v0", GotoPlusV0{Addr: 0x300}, 0x10, 0x310, false},
		{"goto_v0_oob", GotoPlusV0{Addr: 0xFFF}, 0xFF, 0, true},
		{"sys", Call{Addr: 0x300}, 0, PROGRAM_START + 2, false},
	}

	for _, entry := range table {
		cpu := newTestCpu(t, entry.inst)
		cpu.Register.Set(REG_V0, entry.v0)

		_, err := cpu.Tick()
		if entry.err {
			var oob *ErrOutOfBounds
			assert.ErrorAs(err, &oob, entry.name)
			assert.Equal(STATE_HALTED, cpu.State, entry.name)
			continue
		}
		assert.NoError(err, entry.name)
		assert.Equal(entry.pc, cpu.Pc, entry.name)
	}
}

func TestCpu_CallReturn(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t,
		CallSubroutine{Addr: 1024},
		SetRegister{Register: 0, Value: 1},
	)
	err := cpu.Memory.Load(1024, assemble(
		SetRegister{Register: 1, Value: 2},
		Return{},
	))
	assert.NoError(err)

	_, err = cpu.Tick()
	assert.NoError(err)
	assert.Equal(uint16(1024), cpu.Pc)
	top, ok := cpu.Stack.Peek()
	assert.True(ok)
	assert.Equal(uint16(PROGRAM_START+2), top)

	_, err = cpu.Tick()
	assert.NoError(err)
	_, err = cpu.Tick()
	assert.NoError(err)
	assert.Equal(uint16(PROGRAM_START+2), cpu.Pc)
	assert.True(cpu.Stack.Empty())

	_, err = cpu.Tick()
	assert.NoError(err)
	assert.Equal(uint8(1), reg(cpu, 0))
	assert.Equal(uint8(2), reg(cpu, 1))
}

func TestCpu_StackOverflow(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, CallSubroutine{Addr: PROGRAM_START})

	for range STACK_LIMIT {
		_, err := cpu.Tick()
		assert.NoError(err)
	}

	_, err := cpu.Tick()
	assert.ErrorIs(err, ErrStackOverflow)
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal(STACK_LIMIT, cpu.Stack.Depth())

	var halt *ErrHalt
	if assert.ErrorAs(err, &halt) {
		assert.Equal(uint16(PROGRAM_START), halt.Pc)
		assert.Equal(CallSubroutine{Addr: PROGRAM_START}, halt.Instruction)
	}

	// Halted stays halted.
	_, again := cpu.Tick()
	assert.Equal(err, again)
	assert.Equal(err, cpu.Halted())

	cpu.Reset()
	assert.Equal(STATE_RUNNING, cpu.State)
	assert.True(cpu.Stack.Empty())
	assert.Nil(cpu.Halted())
	_, err = cpu.Tick()
	assert.NoError(err)
}

func TestCpu_StackUnderflow(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, Return{})

	_, err := cpu.Tick()
	assert.ErrorIs(err, ErrStackUnderflow)

	var halt *ErrHalt
	if assert.ErrorAs(err, &halt) {
		assert.Equal(uint16(PROGRAM_START), halt.Pc)
		assert.Equal(Return{}, halt.Instruction)
		assert.Equal("halted at 200 'ret': stack underflow", halt.Error())
	}
}

func TestCpu_Unknown(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t)
	assert.NoError(cpu.Memory.Load(PROGRAM_START, []byte{0xF0, 0x00}))

	step, err := cpu.Tick()
	assert.Nil(step.Instruction)
	var unknown *ErrUnknownInstruction
	assert.ErrorAs(err, &unknown)
	assert.Equal([2]byte{0xF0, 0x00}, unknown.Bytes)

	var halt *ErrHalt
	if assert.ErrorAs(err, &halt) {
		assert.Nil(halt.Instruction)
		assert.Equal(uint16(PROGRAM_START), halt.Pc)
	}
	assert.Equal(STATE_HALTED, cpu.State)
}

func TestCpu_FetchBounds(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t)
	assert.NoError(cpu.Memory.Load(MEMORY_SIZE-2, assemble(SetRegister{Register: 0, Value: 1})))
	cpu.Pc = MEMORY_SIZE - 2

	// The following instruction address would be out of memory.
	_, err := cpu.Tick()
	var oob *ErrOutOfBounds
	assert.ErrorAs(err, &oob)
	assert.Equal(MEMORY_SIZE, oob.Address)
	assert.Equal(uint8(0), reg(cpu, 0))

	cpu.Reset()
	cpu.Pc = MEMORY_SIZE - 1
	_, err = cpu.Tick()
	assert.ErrorAs(err, &oob)
	assert.Equal(MEMORY_SIZE-1, oob.Address)
}

func TestCpu_Draw(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t,
		SetI{Addr: FONT_START},
		SetRegister{Register: 0xA, Value: 1},
		SetRegister{Register: 0xB, Value: 8},
		Draw{X: 0xA, Y: 0xB, Height: 5},
	)

	for range 4 {
		_, err := cpu.Tick()
		assert.NoError(err)
	}

	want := video.Pixels{}
	for row, bits := range []uint8{0xF0, 0x90, 0x90, 0x90, 0xF0} {
		for col := range 8 {
			want.Set(1+col, 8+row, bits&(0x80>>col) != 0)
		}
	}
	got := cpu.Display.Snapshot()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("display mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(14, got.Count())
	assert.True(got.Get(1, 8))
	assert.False(got.Get(2, 9))
}

func TestCpu_DrawOverwrite(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t,
		Draw{X: 0, Y: 1, Height: 1},
		Draw{X: 0, Y: 1, Height: 1},
		SetI{Addr: 0x300},
		Draw{X: 0, Y: 1, Height: 1},
	)
	assert.NoError(cpu.Memory.SetByte(0x300, 0x81))
	cpu.I = FONT_START

	// Drawing twice leaves the pixels lit, and does not touch VF.
	cpu.Register.Set(REG_FLAG, 0x42)
	for range 2 {
		_, err := cpu.Tick()
		assert.NoError(err)
	}
	snap := cpu.Display.Snapshot()
	assert.Equal(4, snap.Count())
	assert.Equal(uint8(0x42), reg(cpu, REG_FLAG))

	for range 2 {
		_, err := cpu.Tick()
		assert.NoError(err)
	}
	snap = cpu.Display.Snapshot()
	assert.Equal(2, snap.Count())
	assert.True(snap.Get(0, 0))
	assert.True(snap.Get(7, 0))
}

func TestCpu_DrawClip(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, Draw{X: 0, Y: 1, Height: 5})
	cpu.I = FONT_START
	cpu.Register.Set(0, video.WIDTH-2)
	cpu.Register.Set(1, video.HEIGHT-2)

	_, err := cpu.Tick()
	assert.NoError(err)

	snap := cpu.Display.Snapshot()
	assert.Equal(3, snap.Count())
	assert.True(snap.Get(video.WIDTH-2, video.HEIGHT-2))
	assert.True(snap.Get(video.WIDTH-1, video.HEIGHT-2))
	assert.True(snap.Get(video.WIDTH-2, video.HEIGHT-1))
	assert.False(snap.Get(0, 0))
}

func TestCpu_DrawPartial(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, Draw{X: 0, Y: 0, Height: 4})
	cpu.I = MEMORY_SIZE - 2
	cpu.Memory.SetByte(MEMORY_SIZE-2, 0x80)
	cpu.Memory.SetByte(MEMORY_SIZE-1, 0x80)

	_, err := cpu.Tick()
	var oob *ErrOutOfBounds
	assert.ErrorAs(err, &oob)
	assert.Equal(MEMORY_SIZE, oob.Address)

	// Rows drawn before the failure remain.
	snap := cpu.Display.Snapshot()
	assert.Equal(2, snap.Count())
}

func TestCpu_ClearDisplay(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, ClearDisplay{})
	cpu.Display.Update(func(px *video.Pixels) {
		px.Set(3, 3, true)
	})

	_, err := cpu.Tick()
	assert.NoError(err)
	snap := cpu.Display.Snapshot()
	assert.Equal(0, snap.Count())
}

func TestCpu_DumpRegisters(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, DumpRegisters{End: 3}, DumpRegisters{End: 3})
	cpu.Register.SetArray([REG_COUNT]uint8{0x10, 0x11, 0x12, 0x13, 0x14})
	cpu.I = 0x300

	_, err := cpu.Tick()
	assert.NoError(err)
	assert.Equal([]byte{0x10, 0x11, 0x12, 0x13, 0x00}, cpu.Memory.Data[0x300:0x305])
	assert.Equal(uint16(0x304), cpu.I)

	// No rollback on a bounds failure.
	cpu.I = MEMORY_SIZE - 2
	_, err = cpu.Tick()
	var oob *ErrOutOfBounds
	assert.ErrorAs(err, &oob)
	assert.Equal([]byte{0x10, 0x11}, cpu.Memory.Data[MEMORY_SIZE-2:])
	assert.Equal(uint16(MEMORY_SIZE), cpu.I)
}

func TestCpu_Random(t *testing.T) {
	assert := assert.New(t)

	program := []Instruction{}
	for range 32 {
		program = append(program, SetRegisterRandomAnd{Register: 1, Mask: 0x0F})
	}

	a := newTestCpu(t, program...)
	b := newTestCpu(t, program...)
	for range 32 {
		_, err := a.Tick()
		assert.NoError(err)
		_, err = b.Tick()
		assert.NoError(err)
		assert.LessOrEqual(reg(a, 1), uint8(0x0F))
		assert.Equal(reg(a, 1), reg(b, 1))
	}

	c := newTestCpu(t, SetRegisterRandomAnd{Register: 2, Mask: 0})
	c.Register.Set(2, 0xAA)
	_, err := c.Tick()
	assert.NoError(err)
	assert.Equal(uint8(0), reg(c, 2))
}

func TestCpu_GetKey(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t,
		GetKey{Register: 3},
		SetRegister{Register: 4, Value: 1},
	)
	keypad := &testKeypad{}
	cpu.Keypad = keypad

	step, err := cpu.Tick()
	assert.NoError(err)
	assert.True(step.Waiting)
	assert.Equal(GetKey{Register: 3}, step.Instruction)
	assert.Equal(STATE_WAITING, cpu.State)

	// Waiting does not fetch.
	step, err = cpu.Tick()
	assert.NoError(err)
	assert.True(step.Waiting)
	assert.Equal(uint16(PROGRAM_START+2), cpu.Pc)
	assert.Equal(2, keypad.polls)

	keypad.keys = []uint8{7}
	step, err = cpu.Tick()
	assert.NoError(err)
	assert.False(step.Waiting)
	assert.Equal(STATE_RUNNING, cpu.State)
	assert.Equal(uint8(7), reg(cpu, 3))
	assert.Equal(uint8(0), reg(cpu, 4))

	step, err = cpu.Tick()
	assert.NoError(err)
	assert.Equal(SetRegister{Register: 4, Value: 1}, step.Instruction)
	assert.Equal(uint8(1), reg(cpu, 4))
}

func TestCpu_GetKey_Ready(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, GetKey{Register: 0xE})
	cpu.Keypad = &testKeypad{keys: []uint8{0xF}}

	step, err := cpu.Tick()
	assert.NoError(err)
	assert.False(step.Waiting)
	assert.Equal(uint8(0xF), reg(cpu, 0xE))
}

func TestCpu_GetKey_Error(t *testing.T) {
	assert := assert.New(t)

	errBroken := errors.New("broken")

	table := [](struct {
		name   string
		keypad Keypad
		cause  error
	}){
		{"missing", nil, nil},
		{"failure", &testKeypad{err: errBroken}, errBroken},
		{"range", &testKeypad{keys: []uint8{16}}, ErrInvalidRegister(16)},
	}

	for _, entry := range table {
		cpu := newTestCpu(t, GetKey{Register: 1})
		cpu.Keypad = entry.keypad

		_, err := cpu.Tick()
		assert.ErrorIs(err, ErrKeyboard, entry.name)
		if entry.cause != nil {
			assert.ErrorIs(err, entry.cause, entry.name)
		}
		assert.Equal(STATE_HALTED, cpu.State, entry.name)
	}

	// A failure while waiting halts on the GetKey.
	cpu := newTestCpu(t, GetKey{Register: 1})
	keypad := &testKeypad{}
	cpu.Keypad = keypad
	_, err := cpu.Tick()
	assert.NoError(err)
	keypad.err = errBroken
	_, err = cpu.Tick()
	assert.ErrorIs(err, errBroken)
	var halt *ErrHalt
	if assert.ErrorAs(err, &halt) {
		assert.Equal(uint16(PROGRAM_START), halt.Pc)
		assert.Equal(GetKey{Register: 1}, halt.Instruction)
	}
}

func TestCpu_Execute_All(t *testing.T) {
	assert := assert.New(t)

	for _, entry := range allInstructions {
		cpu := newTestCpu(t)
		cpu.Keypad = &testKeypad{keys: []uint8{1}}
		cpu.Stack.Push(0x300)
		cpu.I = 0x300
		cpu.Pc = 0x202

		err := cpu.Execute(entry.inst)
		assert.NoError(err, entry.text)
	}

	cpu := newTestCpu(t)
	err := cpu.Execute(bogus{})
	assert.ErrorIs(err, ErrInstructionUnhandled)
}

func TestCpu_Reset(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t,
		SetRegister{Register: 5, Value: 0x55},
		SetI{Addr: 0x123},
		CallSubroutine{Addr: 0x300},
	)
	for range 3 {
		_, err := cpu.Tick()
		assert.NoError(err)
	}

	cpu.Reset()
	assert.Equal(uint16(PROGRAM_START), cpu.Pc)
	assert.True(cpu.Stack.Empty())
	assert.Equal(uint8(0x55), reg(cpu, 5))
	assert.Equal(uint16(0x123), cpu.I)
	assert.Equal(byte(0x65), cpu.Memory.Data[PROGRAM_START])
}

func TestCpu_String(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t)
	cpu.Register.Set(0xA, 0x5A)
	cpu.Stack.Push(0x204)

	text := cpu.String()
	assert.Contains(text, "   pc: 200\n")
	assert.Contains(text, "    i: 000\n")
	assert.Contains(text, "state: running\n")
	assert.Contains(text, "   va: 5a\n")
	assert.Contains(text, "stack: 204 (1)\n")
}

// The program loops SetI, SetRegister, SetRegister, Draw, Goto.
func TestCpu_Loop(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t)
	err := cpu.Memory.Load(PROGRAM_START, []byte{
		0xA0, 0x50,
		0x6A, 0x01,
		0x6B, 0x08,
		0xDA, 0xB5,
		0x12, 0x00,
	})
	assert.NoError(err)

	const steps = 60
	frames := make([]video.Pixels, steps)
	for n := range steps {
		_, err := cpu.Tick()
		assert.NoError(err)
		frames[n] = cpu.Display.Snapshot()
	}

	for n := 3; n+6 < steps; n++ {
		if diff := cmp.Diff(frames[n], frames[n+6]); diff != "" {
			t.Errorf("frame %d differs from %d (-want +got):\n%s", n, n+6, diff)
		}
		if diff := cmp.Diff(frames[n], frames[n+5]); diff != "" {
			t.Errorf("frame %d differs from %d (-want +got):\n%s", n, n+5, diff)
		}
	}

	assert.Equal(0, frames[2].Count())
	assert.Equal(14, frames[3].Count())
	assert.True(frames[steps-1].Get(1, 8))
}
