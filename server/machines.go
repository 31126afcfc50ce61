package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/intcode/pkg/intcode"
)

type machineEntry struct {
	machine  *intcode.Machine
	label    string
	created  time.Time
	lastUsed time.Time
}

// MachineInfo describes a stored machine without exposing it.
type MachineInfo struct {
	ID       string
	Label    string
	State    intcode.State
	Created  time.Time
	LastUsed time.Time
}

// MachineStore maps opaque IDs to live machines. Entries idle for longer
// than the TTL are removed by Sweep.
type MachineStore struct {
	mu       sync.Mutex
	machines map[string]*machineEntry
	metrics  *Metrics
	now      func() time.Time
}

// NewMachineStore creates an empty store. metrics may be nil.
func NewMachineStore(metrics *Metrics) *MachineStore {
	return &MachineStore{
		machines: make(map[string]*machineEntry),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Add registers m and returns its new ID.
func (s *MachineStore) Add(m *intcode.Machine, label string) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.machines[id] = &machineEntry{
		machine:  m,
		label:    label,
		created:  now,
		lastUsed: now,
	}
	s.metrics.setMachines(len(s.machines))
	return id
}

// Get returns the machine for id and marks it used.
func (s *MachineStore) Get(id string) (*intcode.Machine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.machines[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = s.now()
	return e.machine, true
}

// Info reports the metadata for id.
func (s *MachineStore) Info(id string) (MachineInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.machines[id]
	if !ok {
		return MachineInfo{}, false
	}
	return MachineInfo{
		ID:       id,
		Label:    e.label,
		State:    e.machine.State(),
		Created:  e.created,
		LastUsed: e.lastUsed,
	}, true
}

// Remove drops id and reports whether it existed.
func (s *MachineStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.machines[id]; !ok {
		return false
	}
	delete(s.machines, id)
	s.metrics.setMachines(len(s.machines))
	return true
}

// Len returns the number of stored machines.
func (s *MachineStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.machines)
}

// Sweep removes machines that haven't been used within ttl.
func (s *MachineStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	removed := 0
	for id, e := range s.machines {
		if e.lastUsed.Before(cutoff) {
			delete(s.machines, id)
			removed++
		}
	}
	if removed > 0 {
		log.Infof("swept %d idle machines", removed)
		s.metrics.swept(removed)
		s.metrics.setMachines(len(s.machines))
	}
	return removed
}

// StartSweeper runs Sweep every interval in the background. The returned
// function stops the sweeper and waits for it to exit.
func (s *MachineStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			select {
			case <-ticker.C:
				s.Sweep(ttl)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}
