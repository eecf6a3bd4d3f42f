package controller

import (
	"sync"
	"testing"
	"time"

	"github.com/gartstein/timeclock/internal/attendance/db"
	"github.com/gartstein/timeclock/internal/attendance/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testNow is the frozen clock the service tests run against.
var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func frozenNow() time.Time { return testNow }

// recordingProducer captures published events. Services publish from
// goroutines, so access is guarded.
type recordingProducer struct {
	mu    sync.Mutex
	types []events.EventType
}

func (p *recordingProducer) Produce(eventType events.EventType, _ uuid.UUID, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
}

// newTestRepo opens an in-memory SQLite repository with the same error
// translation the production repository uses.
func newTestRepo(t *testing.T) *db.Repository {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to open test database")

	repo, err := db.NewWithDB(gdb)
	require.NoError(t, err, "failed to migrate test database")
	return repo
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
