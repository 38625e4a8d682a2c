package profiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Package profiles contains backend profile configs (YAML/JSON) helpers.

const (
	// AuthStored sends the persisted credential as a bearer header.
	AuthStored = "stored"
	// AuthToken expects the caller to pass a token that is sent as a query parameter.
	AuthToken = "token"

	// DefaultID names the profile built from plain config when no file is given.
	DefaultID = "default"
)

// Profile is one backend the client can talk to.
type Profile struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	BaseURL        string            `json:"base_url" yaml:"base_url"`
	Auth           string            `json:"auth" yaml:"auth"`
	CredentialKey  string            `json:"credential_key" yaml:"credential_key"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	Strict         bool              `json:"strict" yaml:"strict"`
}

type fileRegistry struct {
	Profiles []Profile `json:"profiles" yaml:"profiles"`
}

// Registry holds validated profiles keyed by id.
type Registry struct {
	mu       sync.RWMutex
	profiles []Profile
	idx      map[string]Profile
}

// Defaults fills gaps left by profile entries.
type Defaults struct {
	CredentialKey string
	Timeout       time.Duration
}

// LoadRegistry loads the profile registry from a YAML/JSON file.
func LoadRegistry(path string, defaults Defaults) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("profiles file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profiles file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(reg.Profiles) == 0 {
		return nil, errors.New("profiles file contains no profiles entries")
	}
	return NewRegistry(reg.Profiles, defaults)
}

// NewRegistry validates profiles and indexes them.
func NewRegistry(list []Profile, defaults Defaults) (*Registry, error) {
	reg := &Registry{
		profiles: make([]Profile, 0, len(list)),
		idx:      make(map[string]Profile, len(list)),
	}
	for i := range list {
		p := sanitizeProfile(list[i], defaults)
		if err := validateProfile(p); err != nil {
			return nil, fmt.Errorf("profiles[%d]: %w", i, err)
		}
		if _, exists := reg.idx[p.ID]; exists {
			return nil, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		reg.profiles = append(reg.profiles, p)
		reg.idx[p.ID] = p
	}
	return reg, nil
}

// Default builds a single stored-credential profile from plain config.
func Default(baseURL string, defaults Defaults) (*Registry, error) {
	return NewRegistry([]Profile{{
		ID:      DefaultID,
		Name:    "Default backend",
		BaseURL: baseURL,
		Auth:    AuthStored,
	}}, defaults)
}

func parseRegistry(data []byte, ext string) (fileRegistry, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return fileRegistry{}, errors.New("profiles file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (fileRegistry, error) {
	var reg fileRegistry
	if err := fn(data, &reg); err != nil {
		return fileRegistry{}, fmt.Errorf("decode %s profiles: %w", name, err)
	}
	return reg, nil
}

func sanitizeProfile(p Profile, defaults Defaults) Profile {
	p.ID = strings.ToLower(strings.TrimSpace(p.ID))
	p.Name = strings.TrimSpace(p.Name)
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	p.Auth = strings.ToLower(strings.TrimSpace(p.Auth))
	p.CredentialKey = strings.TrimSpace(p.CredentialKey)

	if p.Name == "" {
		p.Name = p.ID
	}
	if p.Auth == "" {
		p.Auth = AuthStored
	}
	if p.CredentialKey == "" {
		p.CredentialKey = strings.TrimSpace(defaults.CredentialKey)
	}
	if p.TimeoutSeconds <= 0 && defaults.Timeout > 0 {
		p.TimeoutSeconds = int(defaults.Timeout / time.Second)
	}
	p.Headers = sanitizeHeaders(p.Headers)
	return p
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validateProfile(p Profile) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.BaseURL == "" {
		return fmt.Errorf("base_url is required for profile %q", p.ID)
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url for profile %q: %w", p.ID, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url for profile %q must be an absolute http(s) URL", p.ID)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("base_url for profile %q must not carry a query or fragment", p.ID)
	}
	switch p.Auth {
	case AuthStored:
		if p.CredentialKey == "" {
			return fmt.Errorf("credential_key is required for stored-auth profile %q", p.ID)
		}
	case AuthToken:
	default:
		return fmt.Errorf("auth for profile %q must be %q or %q, got %q", p.ID, AuthStored, AuthToken, p.Auth)
	}
	for k := range p.Headers {
		switch strings.ToLower(k) {
		case "authorization", "content-type":
			return fmt.Errorf("profile %q must not override the %s header", p.ID, k)
		}
	}
	return nil
}

// ByID returns the profile for id.
func (r *Registry) ByID(id string) (Profile, bool) {
	if r == nil {
		return Profile{}, false
	}
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return Profile{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.idx[id]
	return p, ok
}

// All returns all profiles in file order.
func (r *Registry) All() []Profile {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// IDs returns the sorted profile ids.
func (r *Registry) IDs() []string {
	all := r.All()
	ids := make([]string, 0, len(all))
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)
	return ids
}

// Timeout returns the per-request timeout for the profile. Zero means none.
func (p Profile) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}
