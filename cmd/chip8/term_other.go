//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package main

import (
	"errors"
)

// enterRawTerm is not supported on this platform.
func enterRawTerm(fd int) (restore func() error, err error) {
	err = errors.ErrUnsupported
	return
}
