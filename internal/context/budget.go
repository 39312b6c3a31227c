package context

// Budget tracks token spending against a fixed ceiling. used never exceeds
// max: callers must check Fits (or use Spend's return) before appending.
type Budget struct {
	max  int
	used int
}

// NewBudget creates a budget with the given ceiling.
func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// Fits reports whether n more tokens stay within the ceiling.
func (b *Budget) Fits(n int) bool {
	return b.used+n <= b.max
}

// Spend consumes n tokens. It refuses, returning false, when the spend would
// overflow; there are no partial spends.
func (b *Budget) Spend(n int) bool {
	if !b.Fits(n) {
		return false
	}
	b.used += n
	return true
}

// Used returns the tokens consumed so far.
func (b *Budget) Used() int { return b.used }

// Remaining returns the unspent portion of the ceiling.
func (b *Budget) Remaining() int { return b.max - b.used }

// Max returns the ceiling.
func (b *Budget) Max() int { return b.max }
