package hotspot

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	bucketResultCache = "result_cache"
	bucketRateWindows = "rate_windows"
)

// Cache TTLs for the read-heavy remote queries.
const (
	TTLStatistics   = 30 * time.Second
	TTLInterfaces   = 30 * time.Second
	TTLHotspotUsers = 30 * time.Second
	TTLLogs         = 60 * time.Second
)

// SharedStore is the bolt file shared by the result cache and the rate
// limiter. The file lives under the workdir so every process sharing the
// workdir observes the same entries.
type SharedStore struct {
	db *bbolt.DB
}

// OpenSharedStore opens (or creates) the engine's shared store.
func OpenSharedStore(path string) (*SharedStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open shared store %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketResultCache, bucketRateWindows} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init shared store buckets: %w", err)
	}
	return &SharedStore{db: db}, nil
}

// Close closes the underlying bolt file.
func (s *SharedStore) Close() error {
	return s.db.Close()
}

type cacheEntry struct {
	Value    jsoniter.RawMessage `json:"value"`
	ExpireAt int64               `json:"expire_at"` // unix nanos
}

// ResultCache memoizes read-heavy remote queries with a TTL. Entries are
// keyed "dev:<id>:<query>". Store failures degrade to cache misses so a
// broken cache file never blocks device operations.
type ResultCache struct {
	store *SharedStore
	now   func() time.Time
}

// NewResultCache builds a cache over the shared store. A nil clock
// defaults to time.Now.
func NewResultCache(store *SharedStore, now func() time.Time) *ResultCache {
	if now == nil {
		now = time.Now
	}
	return &ResultCache{store: store, now: now}
}

// CacheKey builds the namespaced key for a device query.
func CacheKey(deviceID int64, query string) string {
	return fmt.Sprintf("dev:%d:%s", deviceID, query)
}

// Get loads a fresh entry into out, reporting whether it was a hit.
func (c *ResultCache) Get(key string, out interface{}) bool {
	var raw []byte
	err := c.store.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(bucketResultCache)).Get([]byte(key)); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil {
		zap.L().Warn("result cache read failed, treating as miss",
			zap.String("key", key), zap.Error(err))
		return false
	}
	if raw == nil {
		return false
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return false
	}
	if c.now().UnixNano() >= entry.ExpireAt {
		return false
	}
	return json.Unmarshal(entry.Value, out) == nil
}

// Set stores a value under key with the given TTL.
func (c *ResultCache) Set(key string, ttl time.Duration, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		zap.L().Warn("result cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	entry, err := json.Marshal(cacheEntry{
		Value:    payload,
		ExpireAt: c.now().Add(ttl).UnixNano(),
	})
	if err != nil {
		return
	}
	err = c.store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketResultCache)).Put([]byte(key), entry)
	})
	if err != nil {
		zap.L().Warn("result cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// GetOrCompute returns the cached value for key into out, or runs compute
// (which must fill out) and stores the result.
func (c *ResultCache) GetOrCompute(key string, ttl time.Duration, out interface{}, compute func() error) error {
	if c.Get(key, out) {
		return nil
	}
	if err := compute(); err != nil {
		return err
	}
	c.Set(key, ttl, out)
	return nil
}

// Invalidate drops entries. Mutating operations call it synchronously
// before reporting success so no later read observes pre-mutation data.
func (c *ResultCache) Invalidate(keys ...string) {
	err := c.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketResultCache))
		for _, key := range keys {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		zap.L().Warn("result cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
