package db

import (
	"context"
	"sync"
	"time"

	"cluster-dashboard-go/models"
)

// Slot is the current result held for one mode.
type Slot struct {
	Seq       uint64                 `json:"seq"`
	Pending   bool                   `json:"pending"` // a run is in flight and the slot was cleared
	Dataset   *models.ClusterDataset `json:"dataset,omitempty"`
	Error     string                 `json:"error,omitempty"`     // message of the last failed run
	ErrorKind string                 `json:"errorKind,omitempty"` // validation or transport
	UpdatedAt time.Time              `json:"updatedAt"`
}

// MemoryStore keeps one slot per mode in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	seq   map[models.Mode]uint64
	slots map[models.Mode]Slot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seq:   make(map[models.Mode]uint64),
		slots: make(map[models.Mode]Slot),
	}
}

// NextSeq issues the next request sequence number for a mode.
func (s *MemoryStore) NextSeq(_ context.Context, mode models.Mode) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[mode]++
	return s.seq[mode], nil
}

// Commit stores slot only when slot.Seq is the latest sequence issued for mode.
func (s *MemoryStore) Commit(_ context.Context, mode models.Mode, slot Slot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.Seq != s.seq[mode] {
		return false, nil
	}
	s.slots[mode] = slot
	return true, nil
}

// Load returns the slot for mode, if any.
func (s *MemoryStore) Load(_ context.Context, mode models.Mode) (Slot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[mode]
	return slot, ok, nil
}

// Discard drops the slot and fences off any run still in flight for mode.
func (s *MemoryStore) Discard(_ context.Context, mode models.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[mode]++
	delete(s.slots, mode)
	return nil
}
