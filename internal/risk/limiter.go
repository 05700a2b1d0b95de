package risk

import (
	"sync"
	"time"
)

// DailyLimiter caps the number of trades opened per UTC day.
// A max of 0 disables the cap.
type DailyLimiter struct {
	mu    sync.Mutex
	max   int
	day   time.Time
	count int
}

// NewDailyLimiter creates a limiter allowing max trades per day.
func NewDailyLimiter(max int) *DailyLimiter {
	return &DailyLimiter{max: max}
}

// StartOfDay returns midnight UTC of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Seed sets the count of trades already opened on now's day.
func (l *DailyLimiter) Seed(now time.Time, count int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.day = StartOfDay(now)
	l.count = count
}

// Allow reports whether another trade may be opened at now.
func (l *DailyLimiter) Allow(now time.Time) bool {
	if l.max <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(now)
	return l.count < l.max
}

// Record counts a trade opened at now.
func (l *DailyLimiter) Record(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(now)
	l.count++
}

// Count returns the trades counted for now's day.
func (l *DailyLimiter) Count(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(now)
	return l.count
}

func (l *DailyLimiter) rollover(now time.Time) {
	day := StartOfDay(now)
	if !day.Equal(l.day) {
		l.day = day
		l.count = 0
	}
}
