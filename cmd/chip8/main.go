// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/io"
	"github.com/ezrec/chip8/translate"
	"github.com/ezrec/chip8/video"
)

// session is the state shared by the user interfaces.
type session struct {
	emu  *emulator.Emulator
	opts video.Options

	done chan struct{} // Closed when the execution loop ends.
	err  error         // Execution loop result, valid once done is closed.
}

// ended returns true, and the execution loop error, once it has ended.
func (ss *session) ended() (ok bool, err error) {
	select {
	case <-ss.done:
		return true, ss.err
	default:
		return false, nil
	}
}

// key pushes a host key press to the keypad, if it maps to a key.
func (ss *session) key(r rune) {
	key, ok := io.DefaultLayout.Key(r)
	if !ok {
		return
	}

	err := ss.emu.Keys.Push(key)
	if err != nil && ss.emu.Verbose {
		log.Printf("key %q: %v", r, err)
	}
}

func main() {
	var compile string
	var romFile string
	var output string
	var ui string
	var rate int
	var scale int
	var grid bool
	var screenshot string
	var lang string
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&romFile, "r", "", ".ch8 rom file to run")
	flag.StringVar(&output, "o", "", "Write the compiled rom to a file")
	flag.StringVar(&ui, "ui", "", "User interface: window, tui, or headless")
	flag.IntVar(&rate, "hz", emulator.DEFAULT_RATE, "Instructions per second")
	flag.IntVar(&scale, "scale", 20, "Window pixels per display cell")
	flag.BoolVar(&grid, "grid", false, "Draw the cell grid")
	flag.StringVar(&screenshot, "screenshot", "", "Save the final display as a PNG file")
	flag.StringVar(&lang, "lang", "", "Message language, as a BCP 47 tag")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	log.SetFlags(0)

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(lang) != 0 {
		translate.SetLanguage(lang)
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	switch {
	case len(compile) != 0:
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		emu.Rom.Data = emu.Program.Binary()
		if len(emu.Rom.Data) > cpu.ROM_LIMIT {
			log.Fatalf("%v: %v", compile, io.ErrRomTooLarge)
		}
	case len(romFile) != 0:
		rom, err := io.ReadRom(os.DirFS(filepath.Dir(romFile)), filepath.Base(romFile))
		if err != nil {
			log.Fatalf("%v: %v", romFile, err)
		}
		emu.Rom = *rom
	default:
		log.Fatalf("%v: one of -c or -r is required", os.Args[0])
	}

	if len(output) != 0 {
		err := writeRom(output, &emu.Rom)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		if len(ui) == 0 {
			return
		}
	}

	if len(ui) == 0 {
		ui = "window"
	}

	err := emu.Reset()
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	ss := &session{
		emu:  emu,
		opts: video.Options{Scale: scale, Grid: grid},
		done: make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(ss.done)
		ss.err = emu.Run(ctx, rate)
	}()

	switch ui {
	case "window":
		err = runWindow(ss)
	case "tui":
		err = runTui(ss)
	case "headless":
		err = runHeadless(ss)
	default:
		err = errors.New(translate.From("unknown user interface %q", ui))
	}

	emu.Stop()
	cancel()
	<-ss.done

	if err != nil {
		log.Printf("%v: %v", ui, err)
	}

	if ss.err != nil && !errors.Is(ss.err, context.Canceled) {
		log.Printf("%v", ss.err)
		log.Print(emu.Cpu.String())
	}

	if len(screenshot) != 0 {
		px := emu.Display.Snapshot()
		opts := ss.opts
		opts.Paused = false
		err := px.SavePNG(screenshot, opts)
		if err != nil {
			log.Fatalf("%v: %v", screenshot, err)
		}
	}

	if err != nil {
		os.Exit(1)
	}
}

// writeRom saves a rom image to a file.
func writeRom(path string, rom *io.Rom) (err error) {
	ouf, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() {
		err = errors.Join(err, ouf.Close())
	}()

	err = rom.Marshal(ouf)
	return
}
