package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	stdio "io"
	"os"
	"os/signal"
)

const (
	KEY_CTRL_C = 0x03
	KEY_ESCAPE = 0x1b
)

// readKeys feeds key presses from input to the keypad until the input
// ends or the user quits. At the end of input the keypad is closed.
func readKeys(ss *session, input stdio.Reader, quit chan<- struct{}) {
	defer close(quit)

	reader := bufio.NewReader(input)
	for {
		r, _, err := reader.ReadRune()
		if err != nil {
			ss.emu.Keys.Close()
			// Keep running on the remaining keys.
			<-ss.done
			return
		}

		switch r {
		case KEY_CTRL_C, KEY_ESCAPE:
			return
		case ' ':
			ss.emu.TogglePause()
		default:
			ss.key(r)
		}
	}
}

// runHeadless runs without a display, reading keys from the terminal.
// The final display is printed as text.
// At the end of input it waits for the program to halt or wait on a key,
// so a program that does neither runs until interrupted.
func runHeadless(ss *session) (err error) {
	restore, err := enterRawTerm(int(os.Stdin.Fd()))
	if err != nil {
		// Not a terminal; read keys as they come.
		restore = func() error { return nil }
		err = nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	quit := make(chan struct{})
	go readKeys(ss, os.Stdin, quit)

	select {
	case <-ss.done:
	case <-quit:
	case <-ctx.Done():
	}

	err = errors.Join(err, restore())

	px := ss.emu.Display.Snapshot()
	fmt.Print(px.String())

	return
}
