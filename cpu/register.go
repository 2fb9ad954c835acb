package cpu

import (
	"fmt"
	"strings"
)

const (
	REG_V0 = iota
	REG_V1
	REG_V2
	REG_V3
	REG_V4
	REG_V5
	REG_V6
	REG_V7
	REG_V8
	REG_V9
	REG_VA
	REG_VB
	REG_VC
	REG_VD
	REG_VE
	REG_VF

	REG_COUNT = 16     // Number of general purpose registers.
	REG_FLAG  = REG_VF // Carry and borrow flag.
)

// RegisterFile is the bank of sixteen 8-bit registers.
type RegisterFile struct {
	data [REG_COUNT]uint8
}

func (rf *RegisterFile) Get(index uint8) (value uint8, err error) {
	if int(index) >= REG_COUNT {
		err = ErrInvalidRegister(index)
		return
	}

	value = rf.data[index]
	return
}

func (rf *RegisterFile) Set(index uint8, value uint8) (err error) {
	if int(index) >= REG_COUNT {
		err = ErrInvalidRegister(index)
		return
	}

	rf.data[index] = value
	return
}

// Array returns a copy of the registers, V0 first.
func (rf *RegisterFile) Array() [REG_COUNT]uint8 {
	return rf.data
}

// SetArray replaces all registers, V0 first.
func (rf *RegisterFile) SetArray(values [REG_COUNT]uint8) {
	rf.data = values
}

func (rf *RegisterFile) String() string {
	var sb strings.Builder
	for n, value := range rf.data {
		if n > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "v%x:%02x", n, value)
	}
	return sb.String()
}
