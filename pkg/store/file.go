package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/clashdesk/clashdesk/pkg/patch"
	"github.com/clashdesk/clashdesk/pkg/snapshot"
)

const (
	originalFile = "original.yaml"
	workingFile  = "working.yaml"
	modsDir      = "mods"

	// patchIDTimeLayout gives one-second granularity. Two saves of the
	// same name within the same second collide; that surfaces as
	// ErrAlreadyExists instead of a silent overwrite.
	patchIDTimeLayout = "20060102_150405"
)

// FileStore is the on-disk Store: original.yaml, working.yaml and one JSON
// file per modification under mods/. Writes are atomic
// (temp file + rename). The mutex serializes in-process access only;
// concurrent processes race at the file level and the last save wins.
type FileStore struct {
	dir string
	mu  sync.RWMutex
	log *slog.Logger
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, log *slog.Logger) *FileStore {
	if log == nil {
		log = slog.Default()
	}
	return &FileStore{dir: dir, log: log}
}

// Open creates the backing directories.
func (s *FileStore) Open() error {
	for _, d := range []string{s.dir, filepath.Join(s.dir, modsDir)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}
	return nil
}

// Dir returns the store's root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) LoadOriginal() (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadSnapshot(originalFile)
}

func (s *FileStore) SaveOriginal(snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSnapshot(originalFile, snap)
}

func (s *FileStore) LoadWorking() (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := filepath.Join(s.dir, workingFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			// First access: derive an independent copy of the original.
			orig, err := s.loadSnapshot(originalFile)
			if err != nil {
				return nil, err
			}
			return orig.Clone()
		}
		return nil, fmt.Errorf("stat working snapshot: %w", err)
	}
	return s.loadSnapshot(workingFile)
}

func (s *FileStore) SaveWorking(snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSnapshot(workingFile, snap)
}

// loadSnapshot reads a snapshot file, treating absence as an empty
// document. Callers must hold the mutex.
func (s *FileStore) loadSnapshot(name string) (*snapshot.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return snapshot.New(), nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	snap, err := snapshot.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return snap, nil
}

func (s *FileStore) saveSnapshot(name string, snap *snapshot.Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return atomicWrite(filepath.Join(s.dir, name), data)
}

func (s *FileStore) SavePatch(m *patch.Modification) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("%s_%s", sanitizeName(m.Name), m.CreatedAt.Format(patchIDTimeLayout))
	path := s.patchPath(id)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: modification %s", ErrAlreadyExists, id)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode modification: %w", err)
	}
	if err := atomicWrite(path, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *FileStore) LoadPatch(id string) (*patch.Modification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadPatch(id)
}

func (s *FileStore) loadPatch(id string) (*patch.Modification, error) {
	data, err := os.ReadFile(s.patchPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: modification %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read modification %s: %w", id, err)
	}

	var m patch.Modification
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", patch.ErrMalformed, id, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	return &m, nil
}

func (s *FileStore) ListPatches() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, modsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("read modifications directory: %w", err)
	}

	summaries := make([]Summary, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		m, err := s.loadPatch(id)
		if err != nil {
			// Best-effort listing: a corrupt record must not break the
			// whole view, but it should not vanish silently either.
			skipped++
			s.log.Warn("skipping unreadable modification", "id", id, "error", err)
			continue
		}
		summaries = append(summaries, Summary{
			Filename:    id,
			Name:        m.Name,
			Description: m.Description,
			CreatedAt:   m.CreatedAt,
			Changes:     m.Summarize(),
		})
	}
	if skipped > 0 {
		s.log.Warn("modification listing incomplete", "skipped", skipped)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (s *FileStore) DeletePatch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.patchPath(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: modification %s", ErrNotFound, id)
		}
		return fmt.Errorf("delete modification %s: %w", id, err)
	}
	return nil
}

func (s *FileStore) patchPath(id string) string {
	// filepath.Base guards against path traversal in caller-supplied ids.
	return filepath.Join(s.dir, modsDir, filepath.Base(id)+".json")
}

// sanitizeName reduces a user-supplied modification name to a filesystem-
// safe identifier fragment.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "modification"
	}
	return b.String()
}

// atomicWrite writes data to path via a temp file and rename.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
