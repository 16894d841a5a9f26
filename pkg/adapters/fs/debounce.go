package fs

import (
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/core"
)

// debouncer collapses bursts of events per note id: editors routinely write
// a file several times in quick succession, and only the settled state is
// worth pushing.
type debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(wait time.Duration) *debouncer {
	return &debouncer{
		wait:   wait,
		timers: make(map[string]*time.Timer),
	}
}

// add schedules fire for the event after the quiet period, replacing any
// pending event with the same id.
func (d *debouncer) add(event core.Event, fire func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if timer, ok := d.timers[event.ID]; ok {
		if timer.Stop() {
			d.wg.Done()
		}
	}

	d.wg.Add(1)
	d.timers[event.ID] = time.AfterFunc(d.wait, func() {
		defer d.wg.Done()

		d.mu.Lock()
		delete(d.timers, event.ID)
		d.mu.Unlock()

		fire(event)
	})
}

// stopAndWait refuses new events and waits for in-flight timers to finish,
// up to the given timeout.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}
