package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/steeltoeoss/parsemd/pkg/log"
	"github.com/steeltoeoss/parsemd/pkg/models"
	"github.com/steeltoeoss/parsemd/pkg/utils"
)

const (
	renderKeyPrefix = "render:"   // Prefix for content hash keys in DB
	renderDBDir     = "render_db" // Subdirectory name within stateDir for Badger DB files
)

var _ RenderStore = (*BadgerStore)(nil)

// BadgerStore implements the RenderStore interface using BadgerDB
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	ctx      context.Context // Parent context
	keyCount atomic.Int64    // Cached key count for O(1) Count
}

// NewBadgerStore opens (or creates) the render cache under stateDir.
// When reset is true any existing cache is removed first.
func NewBadgerStore(ctx context.Context, stateDir string, reset bool, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{
		log: logger,
		ctx: ctx,
	}

	dbPath := filepath.Join(stateDir, renderDBDir)

	if reset {
		logger.Warnf("Cache reset requested. REMOVING existing render cache: %s", dbPath)
		if err := os.RemoveAll(dbPath); err != nil {
			logger.Errorf("Failed to remove existing render cache %s: %v", dbPath, err)
		}
	}

	logger.Infof("Initializing render cache at: %s", dbPath)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	count, err := store.countKeys()
	if err != nil {
		logger.Warnf("Failed to count existing cache entries: %v", err)
	} else {
		store.keyCount.Store(int64(count))
		logger.Debugf("Render cache holds %d entries", count)
	}

	return store, nil
}

// countKeys performs a one-time full key scan.
func (s *BadgerStore) countKeys() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(renderKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxConflictRetries; i++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// Get implements the RenderCache interface
func (s *BadgerStore) Get(contentHash string) (*models.RenderCacheEntry, bool, error) {
	var entry *models.RenderCacheEntry
	key := []byte(renderKeyPrefix + contentHash)

	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting render key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}

		return item.Value(func(val []byte) error {
			var decoded models.RenderCacheEntry
			if errJson := json.Unmarshal(val, &decoded); errJson != nil {
				// A corrupt entry is a miss; the next Put overwrites it
				s.log.Warnf("Failed to unmarshal RenderCacheEntry for key '%s': %v. Treating as a miss.", string(key), errJson)
				return nil
			}
			entry = &decoded
			return nil
		})
	})

	if errView != nil {
		s.log.Errorf("DB View error in Get for key '%s': %v", string(key), errView)
		return nil, false, errView
	}
	return entry, entry != nil, nil
}

// Put implements the RenderCache interface
func (s *BadgerStore) Put(contentHash string, entry *models.RenderCacheEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil render cache entry for '%s'", utils.ErrDatabase, contentHash)
	}
	key := []byte(renderKeyPrefix + contentHash)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: marshal render cache entry '%s': %w", utils.ErrDatabase, string(key), err)
	}

	added := false
	err = s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		switch {
		case errors.Is(errGet, badger.ErrKeyNotFound):
			added = true
		case errGet != nil:
			return errGet
		}
		return txn.SetEntry(badger.NewEntry(key, data))
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in Put: %v", err)
		return fmt.Errorf("%w: storing render key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	if added {
		s.keyCount.Add(1)
	}
	return nil
}

// Count implements the CacheAdmin interface
func (s *BadgerStore) Count() (int, error) {
	return int(s.keyCount.Load()), nil
}

// Prune implements the CacheAdmin interface
func (s *BadgerStore) Prune(ctx context.Context, live map[string]struct{}) (int, error) {
	var stale [][]byte
	prefix := []byte(renderKeyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			key := it.Item().KeyCopy(nil)
			if _, keep := live[string(key[len(prefix):])]; !keep {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: scanning render cache: %w", utils.ErrDatabase, err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("%w: deleting render key '%s': %w", utils.ErrDatabase, string(key), err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("%w: flushing render cache deletes: %w", utils.ErrDatabase, err)
	}

	s.keyCount.Add(-int64(len(stale)))
	s.log.Infof("Pruned %d stale render cache entries", len(stale))
	return len(stale), nil
}

// RunGC implements the CacheAdmin interface.
// It loops value log GC until Badger reports nothing left to rewrite.
func (s *BadgerStore) RunGC() {
	if s.db == nil || s.db.IsClosed() {
		s.log.Debug("DB GC: Database is nil or closed, skipping GC.")
		return
	}

	var err error
	for {
		// Run GC if log is at least 50% reclaimable space
		err = s.db.RunValueLogGC(0.5)
		if err != nil {
			break
		}
		s.log.Debug("BadgerDB GC cycle completed.")
	}

	if errors.Is(err, badger.ErrNoRewrite) {
		s.log.Debug("BadgerDB GC finished (no rewrite needed).")
	} else {
		s.log.Warnf("BadgerDB GC error: %v", err)
	}
}

// Close implements the CacheAdmin interface
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Debug("Closing render cache...")
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing render cache: %v", err)
			return err
		}
		s.log.Info("Render cache closed.")
		return nil
	}
	s.log.Debug("Render cache already closed or was not initialized.")
	return nil
}
