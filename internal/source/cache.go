package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/carrier-dashboard/backend/internal/models"
	badger "github.com/dgraph-io/badger/v4"
)

var payloadKey = []byte("records:payload")

// Cache keeps the last good upstream payload in Badger, expiring it after a TTL.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenCache opens a Badger payload cache in dir. An empty dir keeps the cache in memory.
func OpenCache(dir string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Clean(dir))
		opts = opts.WithValueLogFileSize(1 << 24)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening payload cache: %w", err)
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Load returns the cached records, or ok=false when nothing fresh is cached.
func (c *Cache) Load() ([]models.Record, bool, error) {
	var body []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(payloadKey)
		if err != nil {
			return err
		}
		body, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading payload cache: %w", err)
	}
	records, _, err := DecodeRecords(body)
	if err != nil {
		return nil, false, fmt.Errorf("decoding cached payload: %w", err)
	}
	return records, true, nil
}

// Store replaces the cached payload.
func (c *Cache) Store(records []models.Record) error {
	body, err := EncodeRecords(records)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(payloadKey, body).WithTTL(c.ttl))
	})
}

// Invalidate drops the cached payload.
func (c *Cache) Invalidate() error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(payloadKey)
	})
	if err != nil {
		return fmt.Errorf("invalidating payload cache: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
