package profiles

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	return path
}

func TestLoadRegistryYAML(t *testing.T) {
	path := writeFile(t, "profiles.yaml", `
profiles:
  - id: Ops
    name: Ops console
    base_url: https://ops.example.com/
    headers:
      X-Client: opsctl
      X-Empty: "  "
  - id: talent
    base_url: https://talent.example.com
    auth: TOKEN
    timeout_seconds: 5
`)

	reg, err := LoadRegistry(path, Defaults{CredentialKey: "ops_token", Timeout: 30 * time.Second})
	require.NoError(t, err)

	ops, ok := reg.ByID("OPS")
	require.True(t, ok)
	assert.Equal(t, "ops", ops.ID)
	assert.Equal(t, "https://ops.example.com", ops.BaseURL)
	assert.Equal(t, AuthStored, ops.Auth)
	assert.Equal(t, "ops_token", ops.CredentialKey)
	assert.Equal(t, map[string]string{"X-Client": "opsctl"}, ops.Headers)
	assert.Equal(t, 30*time.Second, ops.Timeout())

	talent, ok := reg.ByID("talent")
	require.True(t, ok)
	assert.Equal(t, AuthToken, talent.Auth)
	assert.Equal(t, "talent", talent.Name)
	assert.Equal(t, 5*time.Second, talent.Timeout())

	assert.Equal(t, []string{"ops", "talent"}, reg.IDs())
	assert.Len(t, reg.All(), 2)
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeFile(t, "profiles.json", `{"profiles":[{"id":"ops","base_url":"http://localhost:8080","credential_key":"k"}]}`)

	reg, err := LoadRegistry(path, Defaults{})
	require.NoError(t, err)
	p, ok := reg.ByID("ops")
	require.True(t, ok)
	assert.Equal(t, "k", p.CredentialKey)
	assert.Zero(t, p.Timeout())
}

func TestLoadRegistryRejectsInvalidFiles(t *testing.T) {
	cases := map[string]string{
		"empty":         "profiles: []\n",
		"garbage":       "::not yaml::\n\t- [",
		"missing url":   "profiles:\n  - id: a\n",
		"relative url":  "profiles:\n  - id: a\n    base_url: /api\n",
		"query in url":  "profiles:\n  - id: a\n    base_url: https://x.example.com?a=1\n",
		"bad auth":      "profiles:\n  - id: a\n    base_url: https://x.example.com\n    auth: basic\n",
		"auth header":   "profiles:\n  - id: a\n    base_url: https://x.example.com\n    headers:\n      Authorization: x\n",
		"duplicate ids": "profiles:\n  - id: a\n    base_url: https://x.example.com\n  - id: A\n    base_url: https://y.example.com\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "profiles.yaml", raw)
			_, err := LoadRegistry(path, Defaults{CredentialKey: "ops_token"})
			require.Error(t, err)
		})
	}

	_, err := LoadRegistry("  ", Defaults{})
	require.Error(t, err)
	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"), Defaults{})
	require.Error(t, err)
}

func TestStoredProfileNeedsCredentialKey(t *testing.T) {
	_, err := NewRegistry([]Profile{{ID: "a", BaseURL: "https://x.example.com"}}, Defaults{})
	require.Error(t, err)

	_, err = NewRegistry([]Profile{{ID: "a", BaseURL: "https://x.example.com", Auth: AuthToken}}, Defaults{})
	require.NoError(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	reg, err := Default("https://api.example.com", Defaults{CredentialKey: "ops_token"})
	require.NoError(t, err)

	p, ok := reg.ByID(DefaultID)
	require.True(t, ok)
	assert.Equal(t, AuthStored, p.Auth)
	assert.Equal(t, "ops_token", p.CredentialKey)

	var nilReg *Registry
	_, ok = nilReg.ByID("x")
	assert.False(t, ok)
	assert.Nil(t, nilReg.All())
}
