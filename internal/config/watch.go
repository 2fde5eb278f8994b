package config

import "sync"

// Watcher broadcasts the latest validated AppConfig to any number of
// observers. It models single-producer/multi-observer "latest wins"
// semantics: a slow observer never blocks the producer and never sees a
// stale intermediate value, only ever the most recent one at the time
// it next reads.
type Watcher struct {
	mu        sync.Mutex
	current   AppConfig
	observers []chan AppConfig
}

// NewWatcher seeds a watcher with an initial config.
func NewWatcher(initial AppConfig) *Watcher {
	return &Watcher{current: initial}
}

// Current returns the most recently published config.
func (w *Watcher) Current() AppConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Subscribe returns a channel of capacity 1 that always holds the latest
// published config: publishing drains any unread value before sending,
// so observers never block the publisher and never queue stale updates.
func (w *Watcher) Subscribe() <-chan AppConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan AppConfig, 1)
	ch <- w.current
	w.observers = append(w.observers, ch)
	return ch
}

// Publish validates cfg and, if valid, becomes the new current value and
// is pushed (latest-wins) to every subscriber.
func (w *Watcher) Publish(cfg AppConfig) error {
	if err := Validate(&cfg); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = cfg
	for _, ch := range w.observers {
		select {
		case <-ch:
		default:
		}
		ch <- cfg
	}
	return nil
}
