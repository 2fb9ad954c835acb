// Package cpu implements the processor and assembler for the CHIP-8 system.
//
// The CPU consists of a program counter (PC), an index register (I),
// sixteen 8-bit registers (v0-vf) where vf doubles as the flag register,
// 4KiB of memory holding the built-in font and the program, and a
// sixteen entry return stack. Drawing goes to a shared video.Framebuffer
// and key input comes from a Keypad.
//
// The assembler provides a simple assembly language for the instruction
// set, supporting macros, labels, equates, and compile-time expression
// evaluation.
package cpu
