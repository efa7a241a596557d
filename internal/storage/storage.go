package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/xqeval/internal/eval"
)

// Storage keys
const (
	keySettings      = "settings"
	prefixTuning     = "tuning/"
	prefixNetwork    = "network/"
	DefaultTuningSet = "default"
)

// DefaultCacheSize is the evaluation cache size, in entries, used until
// another one is saved.
const DefaultCacheSize = 1 << 16

// ErrNotFound is returned for missing tuning sets.
var ErrNotFound = errors.New("not found")

// EngineSettings stores the options that survive restarts.
type EngineSettings struct {
	EvalFile  string    `json:"eval_file"`
	TuningSet string    `json:"tuning_set"`
	CacheSize int64     `json:"cache_size"`
	LastUsed  time.Time `json:"last_used"`
}

// DefaultSettings returns default engine settings
func DefaultSettings() *EngineSettings {
	return &EngineSettings{
		TuningSet: DefaultTuningSet,
		CacheSize: DefaultCacheSize,
		LastUsed:  time.Now(),
	}
}

// NetworkRecord describes a network that was loaded successfully.
type NetworkRecord struct {
	Name        string    `json:"name"`
	Digest      uint64    `json:"digest"`
	HalfDims    int       `json:"half_dims"`
	Description string    `json:"description"`
	LoadedAt    time.Time `json:"loaded_at"`
	LoadCount   int       `json:"load_count"`
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// NewStorage opens the database in the platform data directory.
func NewStorage() (*Storage, error) {
	dbDir, err := DatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(badger.DefaultOptions(dbDir))
}

// NewMemoryStorage opens a database that lives only in memory.
func NewMemoryStorage() (*Storage, error) {
	return Open(badger.DefaultOptions("").WithInMemory(true))
}

// Open opens a database with the given options.
func Open(opts badger.Options) (*Storage, error) {
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// putJSON stores v under key.
func (s *Storage) putJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// getJSON loads key into v. It reports false if the key is absent.
func (s *Storage) getJSON(key string, v any) (bool, error) {
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})

	return found, err
}

// SaveSettings saves engine settings
func (s *Storage) SaveSettings(settings *EngineSettings) error {
	settings.LastUsed = time.Now()
	return s.putJSON(keySettings, settings)
}

// LoadSettings loads engine settings, returns defaults if not found
func (s *Storage) LoadSettings() (*EngineSettings, error) {
	settings := DefaultSettings()
	_, err := s.getJSON(keySettings, settings)
	return settings, err
}

// SaveTuning stores a named coefficient set after validating it.
func (s *Storage) SaveTuning(name string, c *eval.Coefficients) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.putJSON(prefixTuning+name, c)
}

// LoadTuning loads a named coefficient set. Missing fields keep defaults.
func (s *Storage) LoadTuning(name string) (eval.Coefficients, error) {
	c := eval.DefaultCoefficients()
	found, err := s.getJSON(prefixTuning+name, &c)
	if err != nil {
		return c, err
	}
	if !found {
		return c, fmt.Errorf("tuning set %q: %w", name, ErrNotFound)
	}
	return c, c.Validate()
}

// ListTunings returns the names of all stored coefficient sets, sorted.
func (s *Storage) ListTunings() ([]string, error) {
	var names []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixTuning)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), prefixTuning))
		}
		return nil
	})

	sort.Strings(names)
	return names, err
}

// RecordNetwork notes a successful network load, keyed by content digest.
func (s *Storage) RecordNetwork(name string, digest uint64, halfDims int, description string) error {
	key := fmt.Sprintf("%s%016x", prefixNetwork, digest)

	rec := &NetworkRecord{}
	if _, err := s.getJSON(key, rec); err != nil {
		return err
	}
	rec.Name = name
	rec.Digest = digest
	rec.HalfDims = halfDims
	rec.Description = description
	rec.LoadedAt = time.Now()
	rec.LoadCount++

	return s.putJSON(key, rec)
}

// LoadNetworkRecord returns the record for a digest, nil if none exists.
func (s *Storage) LoadNetworkRecord(digest uint64) (*NetworkRecord, error) {
	rec := &NetworkRecord{}
	found, err := s.getJSON(fmt.Sprintf("%s%016x", prefixNetwork, digest), rec)
	if err != nil || !found {
		return nil, err
	}
	return rec, nil
}
