// Package store owns the two persisted state documents: the per-group
// enablement flags and the set of groups where the bot holds admin rights.
// Documents are plain JSON on disk, hydrated once at startup; every mutation
// is serialized behind the owning document's mutex and written back
// atomically before the mutating call returns.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/config"
)

// document is a JSON file holding a string-keyed mapping. The mutex covers
// both the in-memory map and the file, so a load-mutate-save cycle can never
// interleave with another writer.
type document[V any] struct {
	mu   sync.Mutex
	path string
	data map[string]V
}

func openDocument[V any](path string) (*document[V], error) {
	d := &document[V]{path: path, data: make(map[string]V)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &d.data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return d, nil
}

// save writes the mapping to a temp file in the same directory and renames it
// over the document, so a crash mid-write leaves the previous state intact.
// Caller must hold d.mu.
func (d *document[V]) save() error {
	raw, err := json.MarshalIndent(d.data, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(d.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", d.path, err)
	}

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("writing %s: %w", d.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("syncing %s: %w", d.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return err
	}

	if err := os.Rename(tmp.Name(), d.path); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("replacing %s: %w", d.path, err)
	}

	return nil
}

// Store is the state-store service: the sole owner of the persisted mappings.
type Store struct {
	logger   *zap.Logger
	status   *document[bool]   // group id → enabled
	elevated *document[string] // group id → display name
}

// NewStore hydrates both documents from disk. Missing files start empty.
func NewStore(logger *zap.Logger, cfg *config.Config) (*Store, error) {
	status, err := openDocument[bool](cfg.Storage.GroupStatusFile)
	if err != nil {
		return nil, err
	}

	elevated, err := openDocument[string](cfg.Storage.AdminGroupsFile)
	if err != nil {
		return nil, err
	}

	logger.Info("State store hydrated",
		zap.Int("group_flags", len(status.data)),
		zap.Int("admin_groups", len(elevated.data)))

	return &Store{
		logger:   logger.Named("store"),
		status:   status,
		elevated: elevated,
	}, nil
}

func key(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// Enabled reports whether the bot is enabled in the group. Groups with no
// recorded flag are enabled.
func (s *Store) Enabled(chatID int64) bool {
	s.status.mu.Lock()
	defer s.status.mu.Unlock()

	on, ok := s.status.data[key(chatID)]
	if !ok {
		return true
	}

	return on
}

// SetEnabled records and persists the group's enablement flag.
func (s *Store) SetEnabled(chatID int64, on bool) error {
	s.status.mu.Lock()
	defer s.status.mu.Unlock()

	s.status.data[key(chatID)] = on

	return s.status.save()
}

// Elevated reports whether the group is recorded in the elevated-access set.
func (s *Store) Elevated(chatID int64) bool {
	s.elevated.mu.Lock()
	defer s.elevated.mu.Unlock()

	_, ok := s.elevated.data[key(chatID)]

	return ok
}

// SetElevated records and persists a single group's elevated access.
func (s *Store) SetElevated(chatID int64, title string) error {
	s.elevated.mu.Lock()
	defer s.elevated.mu.Unlock()

	s.elevated.data[key(chatID)] = title

	return s.elevated.save()
}

// ReplaceElevated swaps the whole elevated-access set for the given one and
// persists it. This is a full replace, not a merge.
func (s *Store) ReplaceElevated(groups map[int64]string) error {
	s.elevated.mu.Lock()
	defer s.elevated.mu.Unlock()

	s.elevated.data = make(map[string]string, len(groups))
	for id, title := range groups {
		s.elevated.data[key(id)] = title
	}

	return s.elevated.save()
}

// ElevatedGroups returns a copy of the elevated-access set.
func (s *Store) ElevatedGroups() map[int64]string {
	s.elevated.mu.Lock()
	defer s.elevated.mu.Unlock()

	out := make(map[int64]string, len(s.elevated.data))
	for k, title := range s.elevated.data {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			s.logger.Warn("Skipping malformed group id in admin groups document", zap.String("key", k))

			continue
		}
		out[id] = title
	}

	return out
}
