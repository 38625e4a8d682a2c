package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-ops-client/pkg/apiclient"
)

// Package storage persists API credentials on the operator's machine.

// Store keeps bearer tokens under well-known keys.
type Store interface {
	Close() error
	Get(key string) (string, bool, error)
	Put(key, token string) error
	Delete(key string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	// TokenTTL bounds how long a saved token is served. Zero keeps tokens until logout.
	TokenTTL        time.Duration
	CleanupInterval time.Duration
	// EnvPrefix is prepended to the upper-cased key by the env backend.
	EnvPrefix string
}

const (
	defaultCleanupInterval = time.Hour
	defaultEnvPrefix       = "OPS_CREDENTIAL_"
)

// ErrReadOnly is returned by backends that cannot persist tokens.
var ErrReadOnly = errors.New("credential store is read-only")

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "env":
		return envStore{prefix: opts.EnvPrefix, lookup: os.LookupEnv}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported credential store type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TokenTTL < 0 {
		opts.TokenTTL = 0
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if strings.TrimSpace(opts.EnvPrefix) == "" {
		opts.EnvPrefix = defaultEnvPrefix
	}
	return opts
}

// Provider exposes one key of a store as the client's credential source.
// The token is looked up on every call, never cached.
func Provider(store Store, key string) apiclient.CredentialProvider {
	return apiclient.CredentialFunc(func(context.Context) (string, error) {
		if store == nil {
			return "", nil
		}
		token, ok, err := store.Get(key)
		if err != nil {
			return "", fmt.Errorf("read credential %q: %w", key, err)
		}
		if !ok {
			return "", nil
		}
		return token, nil
	})
}

type noopStore struct{}

func (noopStore) Close() error                     { return nil }
func (noopStore) Get(string) (string, bool, error) { return "", false, nil }
func (noopStore) Put(string, string) error         { return ErrReadOnly }
func (noopStore) Delete(string) error              { return nil }

// envStore reads tokens from environment variables, e.g. OPS_CREDENTIAL_OPS_TOKEN.
type envStore struct {
	prefix string
	lookup func(string) (string, bool)
}

func (envStore) Close() error { return nil }

func (e envStore) Get(key string) (string, bool, error) {
	val, ok := e.lookup(e.VarName(key))
	val = strings.TrimSpace(val)
	if !ok || val == "" {
		return "", false, nil
	}
	return val, true, nil
}

func (envStore) Put(string, string) error { return ErrReadOnly }
func (envStore) Delete(string) error      { return ErrReadOnly }

// VarName maps a credential key to its environment variable.
func (e envStore) VarName(key string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	key = strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(key)
	return e.prefix + key
}
