package board

import "fmt"

// Move returns a copy of items with the element at source moved to
// destination. The destination is an index into the sequence after the
// element has been removed; anything past the end appends. Every other
// element keeps its relative order. items is never modified.
func Move[T any](items []T, source, destination int) ([]T, error) {
	if source < 0 || source >= len(items) {
		return nil, fmt.Errorf("%w: source %d (len %d)", ErrIndexOutOfRange, source, len(items))
	}
	if destination < 0 {
		return nil, fmt.Errorf("%w: destination %d", ErrIndexOutOfRange, destination)
	}

	moved := items[source]
	rest := make([]T, 0, len(items))
	rest = append(rest, items[:source]...)
	rest = append(rest, items[source+1:]...)

	if destination > len(rest) {
		destination = len(rest)
	}

	out := make([]T, 0, len(items))
	out = append(out, rest[:destination]...)
	out = append(out, moved)
	out = append(out, rest[destination:]...)
	return out, nil
}

// ClampDestination reports the index a Move will actually place the element at.
func ClampDestination(length, destination int) int {
	if destination >= length {
		return length - 1
	}
	return destination
}
