// Package controller implements the scheduling and attendance consistency
// engine: the validators that decide whether an assignment, absence or
// clock event may be written given everything already on record, and the
// read-side monthly report aggregator. Validation fully precedes
// persistence; on any rejection no record is created or modified.
package controller

import (
	"sync"

	"github.com/gartstein/timeclock/internal/attendance/events"
	"github.com/google/uuid"
)

// EventProducer publishes record lifecycle events downstream.
type EventProducer interface {
	Produce(eventType events.EventType, employeeID uuid.UUID, payload any)
}

// employeeLocks serializes validate-then-write sequences per employee so
// two concurrent writes cannot both pass the duplicate/overlap checks.
type employeeLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newEmployeeLocks() *employeeLocks {
	return &employeeLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the employee's mutex, creating it on first use, and
// returns the unlock function.
func (l *employeeLocks) Lock(employeeID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[employeeID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[employeeID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
