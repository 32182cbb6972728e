package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/combattracker/internal/dependencies/random"
)

// MockRandom replays queued die rolls and IDs. Safe for use from handlers.
type MockRandom struct {
	mu     sync.Mutex
	rolls  []int
	ids    []string
	nextID int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a MockRandom with empty queues
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn pops the next queued value clamped to [0, n). An empty queue rolls 0,
// which is a natural 1 on any die.
func (r *MockRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.rolls) == 0 {
		return 0
	}
	v := r.rolls[0]
	r.rolls = r.rolls[1:]
	if n > 0 && v >= n {
		v = n - 1
	}
	return max(v, 0)
}

// ID pops the next queued ID, or returns a sequential "id-N"
func (r *MockRandom) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.ids) > 0 {
		id := r.ids[0]
		r.ids = r.ids[1:]
		return id
	}
	r.nextID++
	return fmt.Sprintf("id-%d", r.nextID)
}

// QueueIntn queues raw Intn results. A d6 showing 4 is queued as 3.
func (r *MockRandom) QueueIntn(values ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rolls = append(r.rolls, values...)
}

// QueueID queues IDs for upcoming records
func (r *MockRandom) QueueID(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, values...)
}

// Pending returns how many queued rolls have not been used
func (r *MockRandom) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rolls)
}
