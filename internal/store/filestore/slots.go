package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/store"
)

// SlotStore keeps the static gallery in a single JSON array ordered by slot number.
type SlotStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

var _ store.SlotStore = (*SlotStore)(nil)

func NewSlotStore(dir, file string) *SlotStore {
	return &SlotStore{path: filepath.Join(dir, file), now: time.Now}
}

func (s *SlotStore) List(_ context.Context) ([]models.StaticSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SlotStore) Put(_ context.Context, slot models.StaticSlot) (*models.StaticSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load()
	if err != nil {
		return nil, err
	}
	slot.UpdatedAt = s.now().UTC()

	var previous *models.StaticSlot
	replaced := false
	for i := range slots {
		if slots[i].Slot == slot.Slot {
			prev := slots[i]
			previous = &prev
			slots[i] = slot
			replaced = true
			break
		}
	}
	if !replaced {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Slot < slots[j].Slot })

	data, err := json.MarshalIndent(slots, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return nil, err
	}
	return previous, nil
}

func (s *SlotStore) load() ([]models.StaticSlot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.StaticSlot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.StaticSlot{}, nil
	}
	var slots []models.StaticSlot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return slots, nil
}
