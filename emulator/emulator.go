// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"iter"
	"maps"
	"sync/atomic"
	"time"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/internal"
	"github.com/ezrec/chip8/io"
	"github.com/ezrec/chip8/video"
)

const (
	DEFAULT_RATE = 500 // Default instructions per second.
)

var _emulator_defines = internal.Defines{
	"WIDTH":     internal.Hex(video.WIDTH),
	"HEIGHT":    internal.Hex(video.HEIGHT),
	"KEY_COUNT": internal.Hex(io.KEY_COUNT),
}

// Emulator state. CPU + display + key input.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Display *video.Framebuffer // Display shared with the renderer.
	Keys    *io.Queue          // Key presses from the renderer.
	Rom     io.Rom             // Program image loaded on Reset.

	paused  atomic.Bool
	stopped atomic.Bool
	dump    atomic.Pointer[string] // Cpu state after the last Tick.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	display := video.NewFramebuffer()

	emu = &Emulator{
		Cpu:     cpu.NewCpu(display),
		Program: &cpu.Program{},
		Display: display,
		Keys:    io.NewQueue(),
	}

	emu.Cpu.Keypad = emu.Keys
	emu.publish()

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		cpu.Defines(),
	)
}

// Reset powers on the emulator with the current program.
// An assembled Program replaces the Rom image.
func (emu *Emulator) Reset() (err error) {
	if emu.Program != nil && len(emu.Program.Opcodes) != 0 {
		emu.Rom.Data = emu.Program.Binary()
	}

	emu.Cpu.Memory = cpu.NewMemory()
	err = emu.Rom.Load(emu.Cpu.Memory)
	if err != nil {
		return
	}

	emu.Cpu.Register = cpu.RegisterFile{}
	emu.Cpu.I = 0
	emu.Cpu.Reset()

	emu.Display.Update(func(px *video.Pixels) {
		px.Clear()
	})
	emu.Keys.Reset()

	emu.paused.Store(false)
	emu.stopped.Store(false)

	emu.Cpu.Verbose = emu.Verbose
	emu.publish()

	return
}

// Ticks returns the total instructions executed since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// LineNo returns the source line number of the next instruction,
// or 0 if there is no program listing for it.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	return emu.Program.LineNo(emu.Cpu.Pc)
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (step cpu.Step, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			var halt *cpu.ErrHalt
			if errors.As(err, &halt) && emu.Program != nil {
				lineno = emu.Program.LineNo(halt.Pc)
			}
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	step, err = emu.Cpu.Tick()
	emu.publish()

	return
}

// publish records the Cpu state for Dump.
func (emu *Emulator) publish() {
	dump := emu.Cpu.String()
	emu.dump.Store(&dump)
}

// Dump returns the Cpu state as of the last Tick or Reset.
// It is safe to call while Run is executing.
func (emu *Emulator) Dump() string {
	dump := emu.dump.Load()
	if dump == nil {
		return ""
	}
	return *dump
}

// Pause suspends execution in Run.
func (emu *Emulator) Pause() {
	emu.paused.Store(true)
}

// Resume continues execution in Run.
func (emu *Emulator) Resume() {
	emu.paused.Store(false)
}

// TogglePause flips the pause state, and returns the new state.
func (emu *Emulator) TogglePause() (paused bool) {
	for {
		paused = emu.paused.Load()
		if emu.paused.CompareAndSwap(paused, !paused) {
			return !paused
		}
	}
}

// Paused returns true if execution is suspended.
func (emu *Emulator) Paused() bool {
	return emu.paused.Load()
}

// Stop ends Run. The emulator stays stopped until Reset.
func (emu *Emulator) Stop() {
	emu.stopped.Store(true)
}

// Stopped returns true if the emulator has been stopped.
func (emu *Emulator) Stopped() bool {
	return emu.stopped.Load()
}

// Run executes rate instructions per second until stopped, the context
// is done, or the CPU halts. While paused no instructions are executed.
func (emu *Emulator) Run(ctx context.Context, rate int) (err error) {
	if rate <= 0 {
		err = ErrRate
		return
	}

	interval := time.Second / time.Duration(rate)
	if interval <= 0 {
		err = ErrRate
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-ticker.C:
		}

		if emu.Stopped() {
			return
		}

		if emu.Paused() {
			continue
		}

		_, err = emu.Tick()
		if err != nil {
			return
		}
	}
}
