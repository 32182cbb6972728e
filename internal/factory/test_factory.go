package factory

import (
	"time"

	memoryremote "github.com/mcoot/combattracker/internal/cloudsync/memory"
	"github.com/mcoot/combattracker/internal/dependencies/mocks"
	"github.com/mcoot/combattracker/internal/storage/memory"
	"github.com/mcoot/combattracker/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	Store      *memory.Storage
	Remote     *memoryremote.Remote
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App over in-memory storage and an in-memory sync
// remote, with mocked time and randomness
func NewTestApp() *TestApp {
	store := memory.New()
	remote := memoryremote.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, remote, mockClock, mockRandom, testutil.NopLogger())

	return &TestApp{
		App:        app,
		Store:      store,
		Remote:     remote,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
