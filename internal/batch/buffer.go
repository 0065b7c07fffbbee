// Package batch accumulates row tuples for one destination relation until a
// flush threshold is reached.
package batch

import "fmt"

// Tier selects which configured threshold a buffer uses.
type Tier int

const (
	// Small is used for primary and high-arity relations.
	Small Tier = iota
	// Medium is used for child and fan-out relations.
	Medium
)

func (t Tier) String() string {
	switch t {
	case Small:
		return "small"
	case Medium:
		return "medium"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Sizes holds the two configured thresholds.
type Sizes struct {
	Small  int
	Medium int
}

// For returns the threshold for a tier.
func (s Sizes) For(t Tier) int {
	if t == Medium {
		return s.Medium
	}
	return s.Small
}

// Buffer is an ordered, in-memory list of tuples for one relation.
// It is not safe for concurrent use.
type Buffer struct {
	threshold int
	rows      [][]any
}

// NewBuffer creates a buffer that becomes due at threshold rows.
func NewBuffer(threshold int) *Buffer {
	if threshold <= 0 {
		panic(fmt.Sprintf("batch threshold must be positive, got %d", threshold))
	}
	return &Buffer{
		threshold: threshold,
		rows:      make([][]any, 0, threshold),
	}
}

// Add appends a tuple in arrival order.
func (b *Buffer) Add(tuple ...any) {
	b.rows = append(b.rows, tuple)
}

// Len returns the number of buffered tuples.
func (b *Buffer) Len() int { return len(b.rows) }

// Due reports whether the buffer reached its threshold.
func (b *Buffer) Due() bool { return len(b.rows) >= b.threshold }

// Drain returns the buffered tuples and leaves the buffer empty.
// The returned slice is owned by the caller.
func (b *Buffer) Drain() [][]any {
	rows := b.rows
	b.rows = make([][]any, 0, b.threshold)
	return rows
}
