// Package dice provides the core randomness abstraction for the Fable
// combat system.
package dice

// Source is the randomness provider for combat rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Roll returns a die result in [1, sides] using src.
//
// Precondition: sides >= 2; src must be non-nil.
// Postcondition: Returns a value in [1, sides].
func Roll(sides int, src Source) int {
	return src.Intn(sides) + 1
}

// Percent reports whether a percentile roll lands under chance.
// A chance of 0 never succeeds; a chance of 100 always succeeds.
//
// Precondition: chance in [0, 100]; src must be non-nil.
func Percent(chance int, src Source) bool {
	if chance <= 0 {
		return false
	}
	if chance >= 100 {
		return true
	}
	return src.Intn(100) < chance
}
