package session

import "sync"

// Machine owns the one authoritative State. Readers get copies; the only
// way to change the state is Dispatch.
type Machine struct {
	// dispatchMu serializes Dispatch so subscribers observe states in
	// commit order.
	dispatchMu sync.Mutex

	mu     sync.RWMutex
	state  State
	subs   map[int]func(State)
	nextID int
}

// NewMachine returns a machine in the Initial state.
func NewMachine() *Machine {
	return &Machine{state: Initial(), subs: make(map[int]func(State))}
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Dispatch reduces ev into the current state, commits the result and then
// notifies subscribers if anything changed. Subscribers run synchronously on
// the dispatching goroutine and must not call Dispatch themselves.
func (m *Machine) Dispatch(ev Event) State {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.Lock()
	prev := m.state
	next := Reduce(prev, ev)
	m.state = next
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if !next.Equal(prev) {
		for _, fn := range subs {
			fn(next.Clone())
		}
	}
	return next.Clone()
}

// Subscribe registers fn for every committed change and returns a function
// that removes it. fn is not called with the current state.
func (m *Machine) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}
