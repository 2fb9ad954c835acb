package cpu

const (
	MEMORY_SIZE   = 4096                        // Total addressable memory.
	PROGRAM_START = 0x200                       // First address of a loaded program.
	ROM_LIMIT     = MEMORY_SIZE - PROGRAM_START // Largest program image.
	FONT_START    = 0x050                       // First address of the font table.
	FONT_HEIGHT   = 5                           // Bytes per glyph.
)

var _font = [16][FONT_HEIGHT]byte{
	{0xF0, 0x90, 0x90, 0x90, 0xF0}, // 0
	{0x20, 0x60, 0x20, 0x20, 0x70}, // 1
	{0xF0, 0x10, 0xF0, 0x80, 0xF0}, // 2
	{0xF0, 0x10, 0xF0, 0x10, 0xF0}, // 3
	{0x90, 0x90, 0xF0, 0x10, 0x10}, // 4
	{0xF0, 0x80, 0xF0, 0x10, 0xF0}, // 5
	{0xF0, 0x80, 0xF0, 0x90, 0xF0}, // 6
	{0xF0, 0x10, 0x20, 0x40, 0x40}, // 7
	{0xF0, 0x90, 0xF0, 0x90, 0xF0}, // 8
	{0xF0, 0x90, 0xF0, 0x10, 0xF0}, // 9
	{0xF0, 0x90, 0xF0, 0x90, 0x90}, // A
	{0xE0, 0x90, 0xE0, 0x90, 0xE0}, // B
	{0xF0, 0x80, 0x80, 0x80, 0xF0}, // C
	{0xE0, 0x90, 0x90, 0x90, 0xE0}, // D
	{0xF0, 0x80, 0xF0, 0x80, 0xF0}, // E
	{0xF0, 0x80, 0xF0, 0x80, 0x80}, // F
}

// Memory is the byte addressable store of the Cpu.
// Every access is bounds checked.
type Memory struct {
	Data [MEMORY_SIZE]byte
}

// NewMemory returns a cleared memory with the font table loaded.
func NewMemory() (mem *Memory) {
	mem = &Memory{}
	mem.LoadFonts()
	return
}

// LoadFonts writes the hexadecimal digit glyphs at FONT_START.
func (mem *Memory) LoadFonts() {
	for digit, glyph := range _font {
		copy(mem.Data[FONT_START+digit*FONT_HEIGHT:], glyph[:])
	}
}

// Glyph returns the address of the glyph for a hexadecimal digit.
func (mem *Memory) Glyph(digit uint8) (addr uint16) {
	return uint16(FONT_START + int(digit&0xf)*FONT_HEIGHT)
}

func (mem *Memory) check(addr int, size int) (err error) {
	if addr < 0 || addr+size > MEMORY_SIZE {
		err = &ErrOutOfBounds{Address: addr}
	}
	return
}

// Load copies data into memory at offset.
// Nothing is written if the data does not fit.
func (mem *Memory) Load(offset int, data []byte) (err error) {
	err = mem.check(offset, len(data))
	if err != nil {
		return
	}

	copy(mem.Data[offset:], data)
	return
}

func (mem *Memory) Byte(addr uint16) (value uint8, err error) {
	err = mem.check(int(addr), 1)
	if err != nil {
		return
	}

	value = mem.Data[addr]
	return
}

func (mem *Memory) SetByte(addr uint16, value uint8) (err error) {
	err = mem.check(int(addr), 1)
	if err != nil {
		return
	}

	mem.Data[addr] = value
	return
}

// Word returns the two bytes at addr, most significant byte first.
func (mem *Memory) Word(addr uint16) (word [2]byte, err error) {
	err = mem.check(int(addr), 2)
	if err != nil {
		return
	}

	copy(word[:], mem.Data[addr:])
	return
}

// SetWord writes two bytes at addr, most significant byte first.
func (mem *Memory) SetWord(addr uint16, word [2]byte) (err error) {
	err = mem.check(int(addr), 2)
	if err != nil {
		return
	}

	copy(mem.Data[addr:], word[:])
	return
}
