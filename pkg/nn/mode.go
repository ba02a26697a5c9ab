package nn

import "math/rand"

// Mode selects deterministic or stochastic (dropout active) evaluation.
// It is passed explicitly to every forward call; layers hold no mode state.
type Mode struct {
	Stochastic bool
	Rand       *rand.Rand
}

// Deterministic returns the inference mode with dropout disabled.
func Deterministic() Mode { return Mode{} }

// Stochastic returns a mode with dropout enabled and its own seeded source.
func Stochastic(seed int64) Mode {
	return Mode{Stochastic: true, Rand: rand.New(rand.NewSource(seed))}
}

// Valid reports whether a stochastic mode carries a random source.
func (m Mode) Valid() bool {
	return !m.Stochastic || m.Rand != nil
}
