// Package filestore keeps records in JSON files: each table is loaded once, served from
// memory, and rewritten in full (temp file, fsync, rename) after every mutation.
// A table opened with an empty path never touches disk.
package filestore

import (
	"cmp"
	"encoding/json"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/Baaaki/wastetrack/internal/repository"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"go.uber.org/zap"
)

// ErrDuplicateKey is returned when an insert hits an existing key.
var ErrDuplicateKey = repository.ErrDuplicate

// Table is a keyed collection of V persisted as a JSON array.
type Table[K cmp.Ordered, V any] struct {
	path string
	key  func(*V) K
	mu   sync.Mutex
	rows map[K]V
}

// OpenTable loads path if it exists. Missing or empty files start an empty table.
func OpenTable[K cmp.Ordered, V any](path string, key func(*V) K) (*Table[K, V], error) {
	t := &Table[K, V]{
		path: path,
		key:  key,
		rows: make(map[K]V),
	}
	if path == "" {
		return t, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return t, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return t, nil
	}

	var values []V
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	for i := range values {
		t.rows[key(&values[i])] = values[i]
	}

	logger.Log.Debug("filestore: table loaded",
		zap.String("path", path),
		zap.Int("rows", len(t.rows)),
	)

	return t, nil
}

func (t *Table[K, V]) Get(k K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.rows[k]
	return v, ok
}

// Values returns every row ordered by key.
func (t *Table[K, V]) Values() []V {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sortedUnsafe()
}

// Mutate runs fn against the live rows under the table lock and persists the result.
// If fn or the write fails the rows are restored.
func (t *Table[K, V]) Mutate(fn func(rows map[K]V) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := maps.Clone(t.rows)
	if err := fn(t.rows); err != nil {
		t.rows = snapshot
		return err
	}
	if err := t.persistUnsafe(); err != nil {
		t.rows = snapshot
		return err
	}
	return nil
}

func (t *Table[K, V]) sortedUnsafe() []V {
	keys := slices.Sorted(maps.Keys(t.rows))
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.rows[k])
	}
	return out
}

// persistUnsafe rewrites the file with every row. Caller holds mu.
func (t *Table[K, V]) persistUnsafe() error {
	if t.path == "" {
		return nil
	}
	start := time.Now()

	data, err := json.MarshalIndent(t.sortedUnsafe(), "", "  ")
	if err != nil {
		return err
	}

	tempFile := t.path + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		logger.Log.Error("filestore: failed to create temp file",
			zap.String("temp_file", tempFile),
			zap.Error(err),
		)
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Rename(tempFile, t.path); err != nil {
		logger.Log.Error("filestore: failed to rename temp file",
			zap.String("temp_file", tempFile),
			zap.String("target_file", t.path),
			zap.Error(err),
		)
		return err
	}

	logger.Log.Debug("filestore: table written",
		zap.String("path", t.path),
		zap.Int("rows", len(t.rows)),
		zap.Duration("duration", time.Since(start)),
	)

	return nil
}
