package chrono

import (
	"sync"
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
//
// note: fault injection point
type TimeAPI interface {
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func (StandardTime) Now() time.Time {
	return time.Now().UTC()
}

// ManualTime is a TimeAPI whose clock only moves when Advance is called.
type ManualTime struct {
	mutex sync.Mutex
	now   time.Time
}

func NewManualTime(start time.Time) *ManualTime {
	return &ManualTime{now: start}
}

func (m *ManualTime) Now() time.Time {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.now
}

func (m *ManualTime) Advance(d time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.now = m.now.Add(d)
}
