package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-ops-client/internal/config"
	"github.com/samvad-hq/samvad-ops-client/internal/logger"
	"github.com/samvad-hq/samvad-ops-client/internal/storage"
	"github.com/samvad-hq/samvad-ops-client/pkg/apiclient"
	"github.com/samvad-hq/samvad-ops-client/pkg/audit"
	"github.com/samvad-hq/samvad-ops-client/pkg/httpclient"
	"github.com/samvad-hq/samvad-ops-client/pkg/profiles"
)

var (
	// ErrUnknownProfile is returned when a call names a profile that is not loaded.
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrTokenRequired is returned when a token-auth profile is called without a token.
	ErrTokenRequired = errors.New("profile requires an explicit token")
	// ErrNotStoredProfile is returned by Login/Logout for token-auth profiles.
	ErrNotStoredProfile = errors.New("profile does not use a stored credential")
	// ErrEmptyToken is returned by Login when no token was supplied.
	ErrEmptyToken = errors.New("token must not be empty")
)

// Call describes one request issued through the console.
type Call struct {
	Profile string
	Path    string
	Method  string
	Body    any
	// Token switches the call to explicit-token mode regardless of the profile.
	Token  string
	Strict bool
}

// Console owns the long-lived pieces behind every CLI command: the credential
// store, the profile registry, the audit sinks and one API client per profile.
type Console struct {
	cfg            *config.Config
	log            logger.Logger
	store          storage.Store
	profiles       *profiles.Registry
	sinks          *audit.Dispatcher
	clients        map[string]*apiclient.Client
	defaultProfile string
}

// NewConsole builds the console runtime from config.
func NewConsole(ctx context.Context, cfg *config.Config, log logger.Logger) (*Console, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}

	reg, err := loadProfiles(cfg)
	if err != nil {
		return nil, err
	}
	all := reg.All()
	log.InfoObj("profiles registry loaded", "profiles_meta", map[string]any{
		"count": len(all),
		"ids":   reg.IDs(),
	})

	sinks, err := buildAudit(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.CredentialStore, cfg.BBoltPath, storage.Options{
		TokenTTL:        cfg.CredentialTTL,
		CleanupInterval: cfg.CredentialCleanupInterval,
		EnvPrefix:       cfg.CredentialEnvPrefix,
	})
	if err != nil {
		_ = sinks.Close()
		return nil, fmt.Errorf("init credential store: %w", err)
	}
	log.DebugObj("credential store initialized", "storage_config", map[string]any{
		"type":                     cfg.CredentialStore,
		"path":                     cfg.BBoltPath,
		"token_ttl_seconds":        int(cfg.CredentialTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.CredentialCleanupInterval.Seconds()),
	})

	var recorder apiclient.Recorder
	if sinks.Len() > 0 {
		recorder = audit.NewRecorder(sinks, log)
	}

	var httpOpts []httpclient.Option
	if z, ok := log.(*logger.ZapLogger); ok && z.Sugared() != nil {
		httpOpts = append(httpOpts, httpclient.WithLogger(z.Sugared()))
	}

	clients := make(map[string]*apiclient.Client, len(all))
	for _, p := range all {
		opts := []apiclient.Option{
			apiclient.WithName(p.ID),
			apiclient.WithHTTPClient(httpclient.NewRestyClient(p.Timeout(), httpOpts...)),
			apiclient.WithHeaders(p.Headers),
			apiclient.WithLogger(log),
			apiclient.WithStrictDecoding(p.Strict),
		}
		if p.Auth == profiles.AuthStored {
			opts = append(opts, apiclient.WithCredentials(storage.Provider(store, p.CredentialKey)))
		}
		if recorder != nil {
			opts = append(opts, apiclient.WithRecorder(recorder))
		}
		clients[p.ID] = apiclient.New(p.BaseURL, opts...)
	}

	return &Console{
		cfg:            cfg,
		log:            log,
		store:          store,
		profiles:       reg,
		sinks:          sinks,
		clients:        clients,
		defaultProfile: all[0].ID,
	}, nil
}

func loadProfiles(cfg *config.Config) (*profiles.Registry, error) {
	defaults := profiles.Defaults{
		CredentialKey: cfg.CredentialKey,
		Timeout:       cfg.RequestTimeout,
	}
	if strings.TrimSpace(cfg.ProfilesFile) == "" {
		reg, err := profiles.Default(cfg.APIBaseURL, defaults)
		if err != nil {
			return nil, fmt.Errorf("build default profile: %w", err)
		}
		return reg, nil
	}
	reg, err := profiles.LoadRegistry(cfg.ProfilesFile, defaults)
	if err != nil {
		return nil, fmt.Errorf("load profiles registry: %w", err)
	}
	return reg, nil
}

func buildAudit(ctx context.Context, cfg *config.Config, log logger.Logger) (*audit.Dispatcher, error) {
	if strings.TrimSpace(cfg.AuditFile) == "" {
		return audit.NewDispatcher(nil), nil
	}

	sinkReg, err := audit.LoadRegistry(cfg.AuditFile)
	if err != nil {
		return nil, fmt.Errorf("load audit sinks: %w", err)
	}
	enabled := sinkReg.Enabled()
	opened, err := audit.OpenAll(ctx, enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build audit sinks: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, s := range enabled {
		summaries = append(summaries, map[string]string{"id": s.ID, "type": s.Type})
	}
	log.InfoObj("audit sinks loaded", "audit_meta", map[string]any{
		"count": len(summaries),
		"sinks": summaries,
	})
	return audit.NewDispatcher(opened), nil
}

// Call sends one request and returns the raw JSON payload on success. Any
// failure from the backend is an *apiclient.Error.
func (c *Console) Call(ctx context.Context, call Call) (json.RawMessage, error) {
	p, client, err := c.resolve(call.Profile)
	if err != nil {
		return nil, err
	}

	opts := apiclient.Options{Method: call.Method, Body: call.Body}
	if call.Strict {
		strict := true
		opts.Strict = &strict
	}

	switch {
	case call.Token != "":
		return apiclient.FetchWithToken[json.RawMessage](ctx, client, call.Path, call.Token, opts)
	case p.Auth == profiles.AuthToken:
		return nil, fmt.Errorf("%w: %q", ErrTokenRequired, p.ID)
	default:
		return apiclient.Fetch[json.RawMessage](ctx, client, call.Path, opts)
	}
}

// Login saves token as the stored credential of profile.
func (c *Console) Login(profile, token string) error {
	p, _, err := c.resolve(profile)
	if err != nil {
		return err
	}
	if p.Auth != profiles.AuthStored {
		return fmt.Errorf("%w: %q", ErrNotStoredProfile, p.ID)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := c.store.Put(p.CredentialKey, token); err != nil {
		return fmt.Errorf("save credential for %q: %w", p.ID, err)
	}
	c.log.InfoObj("credential saved", "credential_meta", map[string]any{
		"profile": p.ID,
		"key":     p.CredentialKey,
	})
	return nil
}

// Logout removes the stored credential of profile. Removing a missing
// credential is not an error.
func (c *Console) Logout(profile string) error {
	p, _, err := c.resolve(profile)
	if err != nil {
		return err
	}
	if p.Auth != profiles.AuthStored {
		return fmt.Errorf("%w: %q", ErrNotStoredProfile, p.ID)
	}
	if err := c.store.Delete(p.CredentialKey); err != nil {
		return fmt.Errorf("remove credential for %q: %w", p.ID, err)
	}
	c.log.InfoObj("credential removed", "credential_meta", map[string]any{
		"profile": p.ID,
		"key":     p.CredentialKey,
	})
	return nil
}

// ProfileStatus pairs a profile with whether a stored credential is present.
type ProfileStatus struct {
	profiles.Profile `yaml:",inline"`
	Default          bool `json:"default" yaml:"default"`
	LoggedIn         bool `json:"logged_in" yaml:"logged_in"`
}

// Profiles lists loaded profiles in file order.
func (c *Console) Profiles() ([]ProfileStatus, error) {
	all := c.profiles.All()
	out := make([]ProfileStatus, 0, len(all))
	for _, p := range all {
		st := ProfileStatus{Profile: p, Default: p.ID == c.defaultProfile}
		if p.Auth == profiles.AuthStored {
			_, ok, err := c.store.Get(p.CredentialKey)
			if err != nil {
				return nil, fmt.Errorf("read credential for %q: %w", p.ID, err)
			}
			st.LoggedIn = ok
		}
		out = append(out, st)
	}
	return out, nil
}

// Close releases the audit sinks and the credential store.
func (c *Console) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if err := c.sinks.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close audit sinks: %w", err))
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close credential store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Console) resolve(id string) (profiles.Profile, *apiclient.Client, error) {
	if strings.TrimSpace(id) == "" {
		id = c.defaultProfile
	}
	p, ok := c.profiles.ByID(id)
	if !ok {
		return profiles.Profile{}, nil, fmt.Errorf("%w: %q", ErrUnknownProfile, id)
	}
	return p, c.clients[p.ID], nil
}
