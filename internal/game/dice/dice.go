// Package dice provides the randomness abstraction and the outcome generator
// for the wichtel roll engine.
package dice

import (
	"errors"
	"fmt"
)

// Faces is the number of faces on every die.
const Faces = 6

// ErrInvalidInput is returned when a dice count or a forced total lies
// outside the domain of the active dice configuration.
var ErrInvalidInput = errors.New("dice: invalid input")

// Outcome holds the per-die faces produced by one roll event.
//
// Invariant: every face is in [1, Faces]; Outcome is never mutated after creation.
type Outcome struct {
	faces []int
	// Manual is true when the faces were derived from a forced total.
	Manual bool
	// Fallback is true when no legitimate breakdown existed and all ones were substituted.
	Fallback bool
}

// NewOutcome builds an Outcome from explicit faces.
//
// Precondition: every face is in [1, Faces].
// Postcondition: the returned Outcome owns a copy of faces.
func NewOutcome(faces ...int) Outcome {
	for _, f := range faces {
		if f < 1 || f > Faces {
			panic(fmt.Sprintf("dice: NewOutcome precondition violated: face %d out of range", f))
		}
	}
	cp := make([]int, len(faces))
	copy(cp, faces)
	return Outcome{faces: cp}
}

// Default returns the all-ones outcome shown before the first roll.
//
// Precondition: count is a valid dice count.
func Default(count int) Outcome {
	faces := make([]int, count)
	for i := range faces {
		faces[i] = 1
	}
	return Outcome{faces: faces}
}

// Faces returns a copy of the per-die values in roll order.
func (o Outcome) Faces() []int {
	cp := make([]int, len(o.faces))
	copy(cp, o.faces)
	return cp
}

// Count returns the number of dice in the outcome.
func (o Outcome) Count() int { return len(o.faces) }

// Total returns the sum of all faces.
//
// Postcondition: return value == sum(o.Faces()).
func (o Outcome) Total() int {
	total := 0
	for _, f := range o.faces {
		total += f
	}
	return total
}

// String returns a human-readable form such as "[3 4] = 7".
func (o Outcome) String() string {
	return fmt.Sprintf("%v = %d", o.faces, o.Total())
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// ValidCount reports whether count is a supported dice configuration.
func ValidCount(count int) bool {
	return count == 1 || count == 2
}

// TotalRange returns the inclusive total domain for count dice.
//
// Precondition: ValidCount(count).
// Postcondition: lo == count, hi == count*Faces.
func TotalRange(count int) (lo, hi int) {
	return count, count * Faces
}
