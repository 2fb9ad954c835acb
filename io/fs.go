package io

import (
	"errors"
	"io/fs"
)

// ReadRom loads a rom image from a file system.
func ReadRom(filesys fs.FS, name string) (rom *Rom, err error) {
	file, err := filesys.Open(name)
	if err != nil {
		return
	}
	defer func() {
		err = errors.Join(err, file.Close())
		if err != nil {
			rom = nil
		}
	}()

	rom = &Rom{}
	err = rom.Unmarshal(file)

	return
}
