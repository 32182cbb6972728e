package random

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// Random is the source of dice rolls and record IDs. Mocked in tests.
type Random interface {
	// Intn returns a value in [0, n); n <= 0 returns 0
	Intn(n int) int

	// ID returns a new unique record identifier
	ID() string
}

// Source rolls with math/rand/v2 and issues UUIDs
type Source struct{}

// New returns the default Source
func New() Source {
	return Source{}
}

// Intn returns a uniformly distributed int in [0, n)
func (Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.IntN(n)
}

// ID returns a random version 4 UUID
func (Source) ID() string {
	return uuid.NewString()
}
