package factory

import (
	"time"

	"github.com/mcoot/globaldex/internal/dependencies/mocks"
	"github.com/mcoot/globaldex/internal/services/intake"
	"github.com/mcoot/globaldex/internal/storage/memory"
	"github.com/mcoot/globaldex/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	Memory    *memory.Storage
}

// NewTestApp creates an App on in-memory storage with a mocked clock.
// Both kinds wait for their result so tests see merge outcomes directly.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	app, err := newWithDependencies(store, mockClock, Config{
		Intake: intake.Config{
			RegisterTimeout: 5 * time.Second,
			CaptureTimeout:  5 * time.Second,
		},
	}, testutil.NopLogger())
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		Memory:    store,
	}
}
