package io

import (
	"errors"
	"io"
)

// Tape provides scripted key presses from a byte stream.
//
// Each byte is one poll of the keypad: a hexadecimal digit is a key
// press, '.' is a poll with no key pressed, and white space is skipped.
// The end of the stream closes the keypad.
type Tape struct {
	Input io.Reader

	lastErr error
}

// Poll reads the next scripted key press.
func (tc *Tape) Poll() (key uint8, ok bool, err error) {
	if tc.lastErr != nil {
		err = tc.lastErr
		return
	}

	for {
		var one [1]byte
		var n int
		n, err = tc.Input.Read(one[:])
		if n == 0 {
			if err == nil {
				continue
			}
			if errors.Is(err, io.EOF) {
				err = ErrKeypadClosed
			} else {
				err = errors.Join(ErrKeypadClosed, err)
			}
			tc.lastErr = err
			return
		}
		err = nil

		switch c := one[0]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			continue
		case c == '.':
			return
		case c >= '0' && c <= '9':
			key = c - '0'
		case c >= 'a' && c <= 'f':
			key = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			key = c - 'A' + 10
		default:
			err = ErrKeyInvalid
			return
		}

		ok = true
		return
	}
}
