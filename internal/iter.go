package internal

import (
	"fmt"
	"iter"
	"maps"
)

// Defines is a set of assembler equates, name to value text.
type Defines map[string]string

// All returns an iterator over the defines.
func (defs Defines) All() iter.Seq2[string, string] {
	return maps.All(defs)
}

// Hex formats a value the way the assembler parses it back.
func Hex(value int) string {
	return fmt.Sprintf("%#x", value)
}

// IterSeq2Concat concatenates multiple dual-return iterators into a single iterator sequence.
func IterSeq2Concat[T1 any, T2 any](seqs ...iter.Seq2[T1, T2]) iter.Seq2[T1, T2] {
	return func(yield func(T1, T2) bool) {
		for _, seq := range seqs {
			for val1, val2 := range seq {
				if !yield(val1, val2) {
					return
				}
			}
		}
	}
}
