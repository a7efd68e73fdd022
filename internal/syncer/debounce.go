package syncer

import (
	"sync"
	"time"
)

// Debouncer runs fn once, d after the last Trigger. Each Trigger or Cancel
// bumps a generation so a timer that already fired but lost the race to the
// lock does nothing.
type Debouncer struct {
	d  time.Duration
	fn func()

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func NewDebouncer(d time.Duration, fn func()) *Debouncer {
	return &Debouncer{d: d, fn: fn}
}

// Trigger (re)starts the countdown.
func (db *Debouncer) Trigger() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.gen++
	gen := db.gen
	if db.timer != nil {
		db.timer.Stop()
	}
	db.timer = time.AfterFunc(db.d, func() {
		db.mu.Lock()
		if gen != db.gen {
			db.mu.Unlock()
			return
		}
		db.timer = nil
		db.mu.Unlock()
		db.fn()
	})
}

// Cancel drops a pending run and reports whether there was one.
func (db *Debouncer) Cancel() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.gen++
	if db.timer == nil {
		return false
	}
	db.timer.Stop()
	db.timer = nil
	return true
}

// Pending reports whether a run is scheduled.
func (db *Debouncer) Pending() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.timer != nil
}
