// Package connectivity tracks whether the remote API is reachable and fans
// out transitions to interested components.
package connectivity

import (
	"fmt"
	"log/slog"
	"sync"
)

// Listener is notified with the new state on every transition.
type Listener func(online bool)

type subscription struct {
	id int
	fn Listener
}

// Monitor owns the ONLINE/OFFLINE state. It does no polling: signals are
// fed through Handle by a Source or by the front-end.
type Monitor struct {
	log *slog.Logger

	// transition serialises Handle so listeners see transitions in order.
	transition sync.Mutex

	mu     sync.RWMutex
	online bool
	subs   []subscription
	nextID int
}

// NewMonitor creates a Monitor with the initial sample.
func NewMonitor(logger *slog.Logger, initialOnline bool) *Monitor {
	return &Monitor{
		log:    logger.With("component", "connectivity"),
		online: initialOnline,
	}
}

// Status returns the current state.
func (m *Monitor) Status() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe registers fn and returns a function that removes it.
// Listeners are called synchronously in subscription order.
func (m *Monitor) Subscribe(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Handle applies a platform signal. Signals that match the current state are
// ignored. It reports whether a transition happened.
func (m *Monitor) Handle(online bool) bool {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online
	subs := make([]subscription, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	m.log.Info("connectivity changed", slog.Bool("online", online))

	for _, s := range subs {
		m.notify(s, online)
	}
	return true
}

func (m *Monitor) notify(s subscription, online bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("connectivity listener panicked",
				slog.Int("subscription", s.id),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	s.fn(online)
}
