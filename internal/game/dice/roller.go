package dice

import "fmt"

// RollRandom rolls count independent dice using src.
//
// Precondition: src must be non-nil.
// Postcondition: Returns an Outcome with count faces, each uniform in [1, Faces],
// or ErrInvalidInput when count is not a supported dice count.
func RollRandom(count int, src Source) (Outcome, error) {
	if !ValidCount(count) {
		return Outcome{}, fmt.Errorf("%w: dice count %d must be 1 or 2", ErrInvalidInput, count)
	}
	faces := make([]int, count)
	for i := range faces {
		faces[i] = src.Intn(Faces) + 1
	}
	return Outcome{faces: faces}, nil
}

// RollFromTotal builds a concrete per-die breakdown for a forced total.
// With one die the face is the total. With two dice one ordered pair (a, b)
// with a+b == total is chosen uniformly from all such pairs.
//
// Precondition: src must be non-nil.
// Postcondition: Returns an Outcome with Manual set and Total() == total, or
// ErrInvalidInput when total lies outside TotalRange(count). If no breakdown
// exists the Outcome is all ones with Fallback set.
func RollFromTotal(count, total int, src Source) (Outcome, error) {
	if !ValidCount(count) {
		return Outcome{}, fmt.Errorf("%w: dice count %d must be 1 or 2", ErrInvalidInput, count)
	}
	lo, hi := TotalRange(count)
	if total < lo || total > hi {
		return Outcome{}, fmt.Errorf("%w: total %d outside [%d, %d] for %d dice", ErrInvalidInput, total, lo, hi, count)
	}
	if count == 1 {
		return Outcome{faces: []int{total}, Manual: true}, nil
	}
	return pick(pairsFor(total), count, src), nil
}

// pairsFor enumerates every ordered pair of faces summing to total.
func pairsFor(total int) [][]int {
	var pairs [][]int
	for a := 1; a <= Faces; a++ {
		b := total - a
		if b >= 1 && b <= Faces {
			pairs = append(pairs, []int{a, b})
		}
	}
	return pairs
}

func pick(candidates [][]int, count int, src Source) Outcome {
	if len(candidates) == 0 {
		o := Default(count)
		o.Manual = true
		o.Fallback = true
		return o
	}
	chosen := candidates[src.Intn(len(candidates))]
	faces := make([]int, len(chosen))
	copy(faces, chosen)
	return Outcome{faces: faces, Manual: true}
}
