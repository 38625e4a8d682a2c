package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	credentialBucket = "credentials"
	expiryValueBytes = 8
)

// boltStore implements a Store backed by BoltDB. Each value is an 8-byte
// big-endian expiry (unix seconds, 0 = never) followed by the token.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	tokenTTL        time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(credentialBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		tokenTTL:        opts.TokenTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Get returns the token saved under key. Expired tokens are reported as absent.
func (b *boltStore) Get(key string) (string, bool, error) {
	if b == nil || b.db == nil {
		return "", false, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return "", false, err
	}

	var (
		token string
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(credentialBucket))
		if bucket == nil {
			return fmt.Errorf("credential bucket missing")
		}
		value := bucket.Get([]byte(key))
		if value == nil {
			return nil
		}
		expiry, tok, ok := decodeValue(value)
		if !ok || expired(expiry, now) {
			return nil
		}
		token, found = tok, true
		return nil
	})
	return token, found, err
}

// Put saves token under key, replacing any previous value.
func (b *boltStore) Put(key, token string) error {
	if b == nil || b.db == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	token = strings.TrimSpace(token)
	if key == "" {
		return fmt.Errorf("credential key must not be empty")
	}
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	var expiry time.Time
	if b.tokenTTL > 0 {
		expiry = b.now().Add(b.tokenTTL)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(credentialBucket))
		if bucket == nil {
			return fmt.Errorf("credential bucket missing")
		}
		return bucket.Put([]byte(key), encodeValue(expiry, token))
	})
}

// Delete removes the token saved under key. Missing keys are not an error.
func (b *boltStore) Delete(key string) error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(credentialBucket))
		if bucket == nil {
			return fmt.Errorf("credential bucket missing")
		}
		return bucket.Delete([]byte(strings.TrimSpace(key)))
	})
}

// maybeCleanupExpired removes expired tokens on a fixed cadence.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(credentialBucket))
		if bucket == nil {
			return fmt.Errorf("credential bucket missing")
		}

		// cursor.Delete inside the walk skips the following key
		var stale [][]byte
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, _, ok := decodeValue(v)
			if !ok || expired(expiry, now) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func encodeValue(expiry time.Time, token string) []byte {
	buf := make([]byte, expiryValueBytes+len(token))
	var unix int64
	if !expiry.IsZero() {
		unix = expiry.Unix()
	}
	binary.BigEndian.PutUint64(buf, uint64(unix))
	copy(buf[expiryValueBytes:], token)
	return buf
}

// decodeValue splits a stored value into its expiry (zero = never) and token.
func decodeValue(value []byte) (time.Time, string, bool) {
	if len(value) <= expiryValueBytes {
		return time.Time{}, "", false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if unix < 0 {
		return time.Time{}, "", false
	}
	var expiry time.Time
	if unix > 0 {
		expiry = time.Unix(unix, 0)
	}
	return expiry, string(value[expiryValueBytes:]), true
}

func expired(expiry, now time.Time) bool {
	return !expiry.IsZero() && !expiry.After(now)
}
