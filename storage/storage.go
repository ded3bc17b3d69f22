package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"cartes/model"
)

// ErrNotFound is returned when a deck does not exist.
var ErrNotFound = errors.New("deck not found")

// Store provides persistent storage for generated decks.
type Store struct {
	baseDir string
	mu      sync.Mutex
}

// New creates a new Store instance with the given base directory.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) decksDir() string {
	return filepath.Join(s.baseDir, "decks")
}

// EnsureDirs creates the necessary directory structure for storing decks.
func (s *Store) EnsureDirs() error {
	return os.MkdirAll(s.decksDir(), 0o755)
}

func (s *Store) pathFor(d *model.Deck) string {
	t := d.CreatedAt.UTC()
	return filepath.Join(
		s.decksDir(),
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", t.Month()),
		fmt.Sprintf("%02d", t.Day()),
		d.ID+".json",
	)
}

// SaveDeck writes a deck to disk, organizing files by creation date. Saving a
// deck again overwrites it.
func (s *Store) SaveDeck(d *model.Deck) error {
	if d == nil {
		return fmt.Errorf("nil deck")
	}
	if d.ID == "" {
		return fmt.Errorf("deck without id")
	}
	if d.CreatedAt.IsZero() {
		return fmt.Errorf("deck %s without creation time", d.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(d)
}

func (s *Store) write(d *model.Deck) error {
	path := s.pathFor(d)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// walk calls fn for every stored deck. Unreadable files are skipped.
func (s *Store) walk(fn func(path string, d model.Deck) error) error {
	err := filepath.WalkDir(s.decksDir(), func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var d model.Deck
		if err := json.Unmarshal(data, &d); err != nil {
			return nil
		}
		return fn(path, d)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ListDecks retrieves all decks created within the specified time range.
// Decks are sorted by creation time in ascending order.
func (s *Store) ListDecks(from, to time.Time) ([]model.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from = from.UTC()
	to = to.UTC()

	var decks []model.Deck
	err := s.walk(func(_ string, d model.Deck) error {
		t := d.CreatedAt.UTC()
		if t.Before(from) || t.After(to) {
			return nil
		}
		decks = append(decks, d)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(decks, func(i, j int) bool {
		return decks[i].CreatedAt.Before(decks[j].CreatedAt)
	})
	return decks, nil
}

// GetDeck loads a deck by ID.
func (s *Store) GetDeck(id string) (*model.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id)
}

func (s *Store) find(id string) (*model.Deck, error) {
	var found *model.Deck
	errStop := errors.New("stop")
	err := s.walk(func(_ string, d model.Deck) error {
		if d.ID == id {
			found = &d
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found, nil
}

// SetPlacements replaces the illustration placements of a deck.
func (s *Store) SetPlacements(id string, placements []model.Placement) (*model.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.find(id)
	if err != nil {
		return nil, err
	}
	d.Placements = placements
	if err := s.write(d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteBefore removes decks created before cutoff and returns how many were
// removed.
func (s *Store) DeleteBefore(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []string
	err := s.walk(func(path string, d model.Deck) error {
		if d.CreatedAt.Before(cutoff) {
			stale = append(stale, path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
