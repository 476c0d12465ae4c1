package game

import (
	"sync"
	"time"
)

// scheduler fires fn once after the first delay and then on every interval
// until cancelled. Cancel is idempotent and a cancelled scheduler never
// fires again.
type scheduler struct {
	stop chan struct{}
	once sync.Once
}

func newScheduler(first, interval time.Duration, fn func()) *scheduler {
	s := &scheduler{stop: make(chan struct{})}
	go func() {
		timer := time.NewTimer(first)
		defer timer.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-timer.C:
			}
			select {
			case <-s.stop:
				return
			default:
			}
			fn()
			timer.Reset(interval)
		}
	}()
	return s
}

func (s *scheduler) cancel() {
	s.once.Do(func() { close(s.stop) })
}
