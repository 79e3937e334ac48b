package factory

import (
	"time"

	"github.com/mcoot/memorygame/internal/dependencies/mocks"
	"github.com/mcoot/memorygame/internal/services/auth"
	"github.com/mcoot/memorygame/internal/storage/memory"
	"github.com/mcoot/memorygame/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
}

// NewTestApp creates an App backed by memory storage and a pinned clock
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	app := newWithDependencies(memory.New(), mockClock, auth.Config{JWTSecret: "test-secret"}, testutil.NopLogger())

	return &TestApp{
		App:       app,
		MockClock: mockClock,
	}
}
