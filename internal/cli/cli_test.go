package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-ops-client/internal/app"
	"github.com/samvad-hq/samvad-ops-client/pkg/apiclient"
	"github.com/samvad-hq/samvad-ops-client/pkg/profiles"
)

type fakeConsole struct {
	calls    []app.Call
	payload  json.RawMessage
	callErr  error
	logins   map[string]string
	logouts  []string
	profiles []app.ProfileStatus
	closed   int
}

func (f *fakeConsole) Call(_ context.Context, call app.Call) (json.RawMessage, error) {
	f.calls = append(f.calls, call)
	return f.payload, f.callErr
}

func (f *fakeConsole) Login(profile, token string) error {
	if strings.TrimSpace(token) == "" {
		return app.ErrEmptyToken
	}
	if f.logins == nil {
		f.logins = map[string]string{}
	}
	f.logins[profile] = strings.TrimSpace(token)
	return nil
}

func (f *fakeConsole) Logout(profile string) error {
	f.logouts = append(f.logouts, profile)
	return nil
}

func (f *fakeConsole) Profiles() ([]app.ProfileStatus, error) { return f.profiles, nil }

func (f *fakeConsole) Close() error {
	f.closed++
	return nil
}

func execute(t *testing.T, console *fakeConsole, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(func(context.Context) (Console, error) { return console, nil }, "test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRequestCommandStoredMode(t *testing.T) {
	console := &fakeConsole{payload: json.RawMessage(`{"id":7}`)}

	out, err := execute(t, console, "", "request", "/users/7")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7}`, out)

	require.Len(t, console.calls, 1)
	call := console.calls[0]
	assert.Equal(t, "/users/7", call.Path)
	assert.Equal(t, "GET", call.Method)
	assert.Empty(t, call.Token)
	assert.Nil(t, call.Body)
	assert.Equal(t, 1, console.closed)
}

func TestRequestCommandFlags(t *testing.T) {
	console := &fakeConsole{payload: json.RawMessage(`{"ok":true}`)}

	out, err := execute(t, console, "",
		"-p", "talent", "-o", "yaml",
		"request", "/jobs", "-X", "post", "-d", `{"title":"SRE"}`, "--token", " tkn ", "--strict")
	require.NoError(t, err)
	assert.Equal(t, "ok: true\n", out)

	call := console.calls[0]
	assert.Equal(t, "talent", call.Profile)
	assert.Equal(t, "post", call.Method)
	assert.Equal(t, "tkn", call.Token)
	assert.True(t, call.Strict)
	assert.Equal(t, json.RawMessage(`{"title":"SRE"}`), call.Body)
}

func TestRequestCommandDataFromFileAndStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n"), 0o644))

	console := &fakeConsole{payload: json.RawMessage(`{}`)}
	_, err := execute(t, console, "", "request", "/x", "-X", "PUT", "-d", "@"+path)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`{"a":1}`), console.calls[0].Body)

	_, err = execute(t, console, `[1,2]`, "request", "/x", "-d", "@-")
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`[1,2]`), console.calls[1].Body)
}

func TestRequestCommandUsageErrors(t *testing.T) {
	console := &fakeConsole{}

	_, err := execute(t, console, "", "request")
	assert.Equal(t, ExitUsage, ExitCode(err))

	_, err = execute(t, console, "", "request", "/x", "-d", "{not json")
	assert.Equal(t, ExitUsage, ExitCode(err))

	_, err = execute(t, console, "", "request", "/x", "-d", "@/does/not/exist.json")
	assert.Equal(t, ExitUsage, ExitCode(err))

	_, err = execute(t, console, "", "request", "/x", "--bogus")
	assert.Equal(t, ExitUsage, ExitCode(err))

	_, err = execute(t, console, "", "-o", "xml", "request", "/x")
	assert.Equal(t, ExitUsage, ExitCode(err))

	assert.Empty(t, console.calls)
}

func TestRequestCommandPropagatesAPIErrors(t *testing.T) {
	console := &fakeConsole{callErr: &apiclient.Error{Status: 403, Message: "not yours", Kind: apiclient.KindHTTP}}

	_, err := execute(t, console, "", "request", "/x")
	require.Error(t, err)
	assert.Equal(t, ExitGeneric, ExitCode(err))
	assert.Equal(t, "403: not yours", FormatError(err))
}

func TestLoginLogoutCommands(t *testing.T) {
	console := &fakeConsole{}

	_, err := execute(t, console, "", "login", "--token", "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", console.logins[""])

	_, err = execute(t, console, "from-stdin\nignored\n", "-p", "ops", "login")
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", console.logins["ops"])

	_, err = execute(t, console, "", "login")
	assert.Equal(t, ExitUsage, ExitCode(err))

	_, err = execute(t, console, "", "-p", "ops", "logout")
	require.NoError(t, err)
	assert.Equal(t, []string{"ops"}, console.logouts)
}

func TestProfilesCommand(t *testing.T) {
	console := &fakeConsole{profiles: []app.ProfileStatus{{
		Profile:  profiles.Profile{ID: "ops", BaseURL: "https://ops.example.com", Auth: profiles.AuthStored},
		Default:  true,
		LoggedIn: true,
	}}}

	out, err := execute(t, console, "", "profiles")
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "ops", got[0]["id"])
	assert.Equal(t, true, got[0]["logged_in"])
}

func TestConsoleFactoryFailure(t *testing.T) {
	root := NewRootCommand(func(context.Context) (Console, error) {
		return nil, errors.New("load config: boom")
	}, "test")
	root.SetArgs([]string{"profiles"})
	root.SetOut(&bytes.Buffer{})
	err := root.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitGeneric, ExitCode(err))
	assert.Equal(t, "error: load config: boom", FormatError(err))
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("x"), ExitGeneric},
		{&apiclient.Error{Status: 401, Message: apiclient.MessageNotAuthenticated, Kind: apiclient.KindUnauthenticated}, ExitUnauthenticated},
		{&apiclient.Error{Status: 401, Message: "expired", Kind: apiclient.KindHTTP}, ExitUnauthenticated},
		{&apiclient.Error{Message: "dial tcp: refused", Kind: apiclient.KindTransport}, ExitTransport},
		{&apiclient.Error{Message: "bad path", Kind: apiclient.KindInvalidRequest}, ExitUsage},
		{&apiclient.Error{Status: 500, Message: "Internal Server Error", Kind: apiclient.KindHTTP}, ExitGeneric},
		{fmt.Errorf("%w: %q", app.ErrTokenRequired, "talent"), ExitUsage},
		{fmt.Errorf("%w: %q", app.ErrUnknownProfile, "nope"), ExitUsage},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExitCode(tc.err), "%v", tc.err)
	}
}

func TestFormatErrorDetail(t *testing.T) {
	err := &apiclient.Error{Status: 502, Message: "Bad Gateway", Kind: apiclient.KindHTTP, Detail: "upstream timed out"}
	assert.Equal(t, "502: Bad Gateway\nupstream timed out", FormatError(err))

	err = &apiclient.Error{Message: "dial tcp: refused", Kind: apiclient.KindTransport}
	assert.Equal(t, "dial tcp: refused", FormatError(err))
}
