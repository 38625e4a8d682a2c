package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func TestBoltStoreSavesAndExpiresTokens(t *testing.T) {
	dir := t.TempDir()
	opts := normalizeOptions(Options{
		TokenTTL:        time.Minute,
		CleanupInterval: time.Second,
	})

	storeRaw, err := openBolt(filepath.Join(dir, "nested", "credentials.db"), opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }

	if _, ok, err := store.Get("ops_token"); err != nil || ok {
		t.Fatalf("expected no token, ok=%v err=%v", ok, err)
	}

	if err := store.Put("ops_token", " abc123 "); err != nil {
		t.Fatalf("Put: %v", err)
	}

	token, ok, err := store.Get("ops_token")
	if err != nil || !ok || token != "abc123" {
		t.Fatalf("expected saved token, got token=%q ok=%v err=%v", token, ok, err)
	}

	// Jump past the TTL; the token must no longer be served and cleanup removes it.
	now = now.Add(2 * time.Minute)
	if _, ok, err := store.Get("ops_token"); err != nil || ok {
		t.Fatalf("expected expired token to be absent, ok=%v err=%v", ok, err)
	}

	var remaining int
	_ = store.db.View(func(tx *bolt.Tx) error {
		remaining = tx.Bucket([]byte(credentialBucket)).Stats().KeyN
		return nil
	})
	if remaining != 0 {
		t.Fatalf("expected cleanup to remove expired entries, %d left", remaining)
	}
}

func TestBoltStoreCleanupRemovesAdjacentExpiredKeys(t *testing.T) {
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "credentials.db"), normalizeOptions(Options{
		TokenTTL:        time.Minute,
		CleanupInterval: time.Second,
	}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	now := time.Now()
	keys := []string{"a", "b", "c", "d", "e", "keep"}
	err = store.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(credentialBucket))
		for _, k := range keys {
			expiry := now.Add(-time.Minute)
			if k == "keep" {
				expiry = time.Time{}
			}
			if err := bucket.Put([]byte(k), encodeValue(expiry, "tok-"+k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := store.maybeCleanupExpired(now.Add(time.Hour)); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	var left []string
	_ = store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(credentialBucket)).ForEach(func(k, _ []byte) error {
			left = append(left, string(k))
			return nil
		})
	})
	if len(left) != 1 || left[0] != "keep" {
		t.Fatalf("expected only the non-expiring key to survive, got %v", left)
	}
}

func TestBoltStoreWithoutTTLKeepsTokensAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")

	first, err := NewStore("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := first.Put("talent_token", "t-1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := NewStore("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	token, ok, err := second.Get("talent_token")
	if err != nil || !ok || token != "t-1" {
		t.Fatalf("expected persisted token, got %q ok=%v err=%v", token, ok, err)
	}

	if err := second.Delete("talent_token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := second.Get("talent_token"); ok {
		t.Fatalf("expected token removed after Delete")
	}
	if err := second.Delete("never-saved"); err != nil {
		t.Fatalf("Delete of missing key: %v", err)
	}
}

func TestBoltStoreRejectsEmptyValues(t *testing.T) {
	store, err := NewStore("bbolt", filepath.Join(t.TempDir(), "c.db"), Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if err := store.Put("", "x"); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if err := store.Put("k", "  "); err == nil {
		t.Fatalf("expected error for blank token")
	}
}

func TestDecodeValueRejectsCorruptEntries(t *testing.T) {
	if _, _, ok := decodeValue([]byte{1, 2, 3}); ok {
		t.Fatalf("short value must not decode")
	}
	expiry, token, ok := decodeValue(encodeValue(time.Time{}, "tok"))
	if !ok || !expiry.IsZero() || token != "tok" {
		t.Fatalf("round trip failed: %v %q %v", expiry, token, ok)
	}
}

func TestNewStoreBackends(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if _, ok, _ := store.Get("x"); ok {
		t.Fatalf("noop store must be empty")
	}
	if err := store.Put("x", "y"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("noop store Put: want ErrReadOnly, got %v", err)
	}

	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for bbolt without path")
	}
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestEnvStoreReadsPrefixedVariable(t *testing.T) {
	t.Setenv("OPS_CREDENTIAL_OPS_TOKEN", "from-env")

	store, err := NewStore("env", "", Options{})
	if err != nil {
		t.Fatalf("NewStore env: %v", err)
	}
	token, ok, err := store.Get("ops-token")
	if err != nil || !ok || token != "from-env" {
		t.Fatalf("expected env token, got %q ok=%v err=%v", token, ok, err)
	}
	if err := store.Put("ops_token", "x"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("env store must be read-only, got %v", err)
	}
}

func TestProviderReadsStoreOnEveryCall(t *testing.T) {
	store, err := NewStore("bbolt", filepath.Join(t.TempDir(), "c.db"), Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	provider := Provider(store, "ops_token")
	ctx := context.Background()

	if token, err := provider.Credential(ctx); err != nil || token != "" {
		t.Fatalf("expected empty credential, got %q err=%v", token, err)
	}
	if err := store.Put("ops_token", "fresh"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if token, err := provider.Credential(ctx); err != nil || token != "fresh" {
		t.Fatalf("expected fresh credential, got %q err=%v", token, err)
	}
}
