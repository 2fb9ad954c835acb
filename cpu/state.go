package cpu

// State is the execution state of the Cpu.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING = State(0) // running
	STATE_WAITING = State(1) // waiting
	STATE_HALTED  = State(2) // halted
)
