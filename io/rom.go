package io

import (
	"io"

	"github.com/ezrec/chip8/cpu"
)

// Rom is a program image, loaded into memory at cpu.PROGRAM_START.
type Rom struct {
	Data []byte
}

// Unmarshal loads rom data from a reader, replacing any existing data.
// Returns ErrRomTooLarge if the image does not fit in memory.
func (rom *Rom) Unmarshal(file io.Reader) (err error) {
	// Read one byte past the limit to detect oversized images.
	data, err := io.ReadAll(io.LimitReader(file, cpu.ROM_LIMIT+1))
	if err != nil {
		return
	}

	if len(data) > cpu.ROM_LIMIT {
		err = ErrRomTooLarge
		return
	}

	rom.Data = data

	return
}

// Marshal writes the rom data to a writer.
func (rom *Rom) Marshal(file io.Writer) (err error) {
	_, err = file.Write(rom.Data)

	return
}

// Load copies the rom into memory at cpu.PROGRAM_START.
func (rom *Rom) Load(mem *cpu.Memory) (err error) {
	if len(rom.Data) > cpu.ROM_LIMIT {
		err = ErrRomTooLarge
		return
	}

	err = mem.Load(cpu.PROGRAM_START, rom.Data)

	return
}
