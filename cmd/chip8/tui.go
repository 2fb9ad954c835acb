package main

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jroimartin/gocui"

	"github.com/ezrec/chip8/io"
	"github.com/ezrec/chip8/video"
)

// TUI_REFRESH is the terminal repaint interval.
const TUI_REFRESH = time.Second / 30

// cells renders the display two characters per cell.
func cells(px *video.Pixels) string {
	var text strings.Builder
	for y := range video.HEIGHT {
		for x := range video.WIDTH {
			if px.Get(x, y) {
				text.WriteString("██")
			} else {
				text.WriteString("  ")
			}
		}
		text.WriteString("\n")
	}
	return text.String()
}

// gocui layout
func (ss *session) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	width := video.WIDTH*2 + 1
	height := video.HEIGHT + 1

	if v, err := g.SetView("screen", 0, 0, width, height); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "CHIP-8"
	}
	if v, err := g.SetView("registers", width+1, 0, max(width+2, maxX-1), height); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Registers"
	}
	if v, err := g.SetView("status", 0, height+1, max(1, maxX-1), max(height+2, maxY-1)); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		v.Wrap = true
	}
	return nil
}

// redraw repaints every view from the emulator state.
func (ss *session) redraw(g *gocui.Gui) error {
	px := ss.emu.Display.Snapshot()

	v, err := g.View("screen")
	if err != nil {
		return err
	}
	v.Clear()
	fmt.Fprint(v, cells(&px))

	v, err = g.View("registers")
	if err != nil {
		return err
	}
	ended, halt := ss.ended()
	if ended || ss.emu.Paused() {
		v.Clear()
		fmt.Fprint(v, ss.emu.Dump())
	}

	v, err = g.View("status")
	if err != nil {
		return err
	}
	v.Clear()
	switch {
	case halt != nil:
		fmt.Fprintf(v, "%v\n", halt)
	case ended:
		fmt.Fprintln(v, "stopped")
	case ss.emu.Paused():
		fmt.Fprintln(v, "paused")
	default:
		fmt.Fprintln(v, "running")
	}
	fmt.Fprint(v, "Space: pause  Ctrl-C: quit  Keys: 1234 qwer asdf zxcv")

	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

// runTui runs the terminal interface until the user quits.
func runTui(ss *session) (err error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return
	}
	defer g.Close()

	g.SetManagerFunc(ss.layout)

	err = g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit)
	if err != nil {
		return
	}

	err = g.SetKeybinding("", gocui.KeySpace, gocui.ModNone, func(g *gocui.Gui, v *gocui.View) error {
		ss.emu.TogglePause()
		return nil
	})
	if err != nil {
		return
	}

	bound := map[rune]bool{}
	for r := range io.DefaultLayout {
		for _, ch := range []rune{unicode.ToLower(r), unicode.ToUpper(r)} {
			if bound[ch] {
				continue
			}
			bound[ch] = true
			err = g.SetKeybinding("", ch, gocui.ModNone, func(g *gocui.Gui, v *gocui.View) error {
				ss.key(ch)
				return nil
			})
			if err != nil {
				return
			}
		}
	}

	// gocui allows updating the views only through Update.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(TUI_REFRESH)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				g.Update(ss.redraw)
			}
		}
	}()

	err = g.MainLoop()
	if errors.Is(err, gocui.ErrQuit) {
		err = nil
	}

	return
}
