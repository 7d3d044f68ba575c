package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketProfiles  = []byte("profiles")
	bucketServers   = []byte("servers")
	bucketJoinCodes = []byte("join_codes")
	bucketCooldowns = []byte("cooldowns")
	bucketProcessed = []byte("processed")
)

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidJoinCode is returned when a join code is unknown or already claimed.
	ErrInvalidJoinCode = errors.New("invalid join code")
)

// Store wraps a BoltDB instance holding profiles, servers, join codes and cooldowns.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// New opens (or creates) the database at the given path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketProfiles, bucketServers, bucketJoinCodes, bucketCooldowns, bucketProcessed} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying DB handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AlreadyProcessed checks if we've handled a message ID; if not, it marks it processed.
func (s *Store) AlreadyProcessed(id string) (bool, error) {
	if id == "" {
		return false, errors.New("empty message id")
	}
	var existed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProcessed)
		if v := b.Get([]byte(id)); v != nil {
			existed = true
			return nil
		}
		return b.Put([]byte(id), []byte(s.now().UTC().Format(time.RFC3339Nano)))
	})
	return existed, err
}

// PruneProcessed drops processed markers older than maxAge.
func (s *Store) PruneProcessed(maxAge time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-maxAge)
	var removed int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProcessed)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			ts, err := time.Parse(time.RFC3339Nano, string(v))
			if err != nil || ts.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func getJSON(b *bolt.Bucket, key string, out any) (bool, error) {
	data := b.Get([]byte(key))
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func putJSON(b *bolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}
