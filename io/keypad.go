// Package io provides the key and ROM sources for the CHIP-8 emulator.
// It includes a thread-safe key queue fed by a user interface (Queue), a
// scripted key source (Tape), the host keyboard layout (Layout), and ROM
// images (Rom).
package io

import (
	"unicode"

	"github.com/ezrec/chip8/cpu"
)

// KEY_COUNT is the number of keys on the keypad.
const KEY_COUNT = 16

// Layout maps host keyboard characters to keypad keys.
type Layout map[rune]uint8

// DefaultLayout maps the left hand block of a QWERTY keyboard onto the
// keypad, in key order:
//
//	1 2 3 4      0 1 2 3
//	q w e r  ->  4 5 6 7
//	a s d f      8 9 a b
//	z x c v      c d e f
var DefaultLayout = Layout{
	'1': 0x0, '2': 0x1, '3': 0x2, '4': 0x3,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0x7,
	'a': 0x8, 's': 0x9, 'd': 0xa, 'f': 0xb,
	'z': 0xc, 'x': 0xd, 'c': 0xe, 'v': 0xf,
}

// Key returns the keypad key for a host character, ignoring case.
func (layout Layout) Key(r rune) (key uint8, ok bool) {
	key, ok = layout[unicode.ToLower(r)]
	if ok && key >= KEY_COUNT {
		ok = false
	}
	return
}

var (
	_ cpu.Keypad = (*Queue)(nil)
	_ cpu.Keypad = (*Tape)(nil)
)
