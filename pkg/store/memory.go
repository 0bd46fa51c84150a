package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/clashdesk/clashdesk/pkg/patch"
	"github.com/clashdesk/clashdesk/pkg/snapshot"
)

// MemStore keeps everything in memory. It mirrors FileStore semantics,
// including cloning on every load and save so callers never share state
// with the store.
type MemStore struct {
	mu       sync.RWMutex
	original *snapshot.Snapshot
	working  *snapshot.Snapshot
	patches  map[string]*patch.Modification
}

func NewMemStore() *MemStore {
	return &MemStore{patches: make(map[string]*patch.Modification)}
}

func (s *MemStore) LoadOriginal() (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.original == nil {
		return snapshot.New(), nil
	}
	return s.original.Clone()
}

func (s *MemStore) SaveOriginal(snap *snapshot.Snapshot) error {
	clone, err := snap.Clone()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.original = clone
	return nil
}

func (s *MemStore) LoadWorking() (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.working == nil {
		if s.original == nil {
			return snapshot.New(), nil
		}
		return s.original.Clone()
	}
	return s.working.Clone()
}

func (s *MemStore) SaveWorking(snap *snapshot.Snapshot) error {
	clone, err := snap.Clone()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.working = clone
	return nil
}

func (s *MemStore) SavePatch(m *patch.Modification) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	clone, err := clonePatch(m)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("%s_%s", sanitizeName(m.Name), m.CreatedAt.Format(patchIDTimeLayout))
	if _, ok := s.patches[id]; ok {
		return "", fmt.Errorf("%w: modification %s", ErrAlreadyExists, id)
	}
	s.patches[id] = clone
	return id, nil
}

func (s *MemStore) LoadPatch(id string) (*patch.Modification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.patches[id]
	if !ok {
		return nil, fmt.Errorf("%w: modification %s", ErrNotFound, id)
	}
	return clonePatch(m)
}

func (s *MemStore) ListPatches() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]Summary, 0, len(s.patches))
	for id, m := range s.patches {
		summaries = append(summaries, Summary{
			Filename:    id,
			Name:        m.Name,
			Description: m.Description,
			CreatedAt:   m.CreatedAt,
			Changes:     m.Summarize(),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (s *MemStore) DeletePatch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patches[id]; !ok {
		return fmt.Errorf("%w: modification %s", ErrNotFound, id)
	}
	delete(s.patches, id)
	return nil
}

// clonePatch deep-copies through JSON, matching what FileStore persistence
// does to the record.
func clonePatch(m *patch.Modification) (*patch.Modification, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode modification: %w", err)
	}
	var out patch.Modification
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode modification: %w", err)
	}
	return &out, nil
}

var _ Store = (*MemStore)(nil)
