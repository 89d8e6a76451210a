// Package cache persists solver verdicts across prove runs. Queries are
// keyed by a digest of their SMT script, so any change to the spec or the
// query synthesizer invalidates the entry naturally.
package cache

import (
	"crypto/sha256"
	"time"

	bolt "github.com/coreos/bbolt"
	"github.com/pkg/errors"
)

var verdictBucket = []byte("verdicts")

// Cache is a bbolt-backed verdict store.
type Cache struct {
	db *bolt.DB
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open verdict cache")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(verdictBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init verdict cache")
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Key digests an SMT script.
func Key(script string) []byte {
	sum := sha256.Sum256([]byte(script))
	return sum[:]
}

// Get returns the cached verdict for a script digest, if any.
func (c *Cache) Get(key []byte) (string, bool) {
	var verdict string
	_ = c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(verdictBucket).Get(key); v != nil {
			verdict = string(v)
		}
		return nil
	})
	return verdict, verdict != ""
}

// Put records a verdict. Only settled verdicts are worth storing; the
// caller must not cache solver errors.
func (c *Cache) Put(key []byte, verdict string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(verdictBucket).Put(key, []byte(verdict))
	})
}
