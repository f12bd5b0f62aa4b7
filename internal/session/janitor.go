package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"audio-merger/internal/logging"
)

// Janitor periodically removes expired sessions.
type Janitor struct {
	store    *Store
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

// NewJanitor creates a Janitor that sweeps store every interval.
func NewJanitor(store *Store, interval time.Duration) *Janitor {
	return &Janitor{
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins sweeping in the background. The first sweep runs at once.
func (j *Janitor) Start() {
	if j.started.Swap(true) {
		return
	}
	go j.loop()
}

// Stop ends the sweep loop and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
	if j.started.Load() {
		<-j.done
	}
}

func (j *Janitor) loop() {
	defer close(j.done)
	j.Sweep()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Sweep()
		case <-j.stopChan:
			return
		}
	}
}

// Sweep runs one expiry pass.
func (j *Janitor) Sweep() int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := j.store.ExpireIdle(ctx)
	if err != nil {
		logging.Warn("Session cleanup failed: %v", err)
		return 0
	}
	if removed > 0 {
		logging.Info("Removed %d expired sessions", removed)
	}
	return removed
}
