package io

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Keypad errors
	ErrQueueFull    = errors.New(f("key queue full"))
	ErrKeypadClosed = errors.New(f("keypad closed"))
	ErrKeyInvalid   = errors.New(f("key invalid"))

	// ROM errors
	ErrRomTooLarge = errors.New(f("rom too large"))
)
