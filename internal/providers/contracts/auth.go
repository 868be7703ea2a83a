package contracts

import (
	"context"
	"sync"
	"time"
)

// AuthType enumerates how a provider expects credentials to be presented.
type AuthType string

const (
	AuthAPIKey    AuthType = "api_key"
	AuthBearer    AuthType = "bearer"
	AuthCloudAuth AuthType = "cloud_auth"
)

// Credentials mirrors original_source's Credentials dataclass: a token plus
// optional expiry, with a header-shaping helper so callers never hand-roll
// Authorization headers per provider.
type Credentials struct {
	Token     string
	ExpiresAt *time.Time
	Type      AuthType
}

func (c Credentials) IsExpired() bool {
	return c.ExpiresAt != nil && time.Now().After(*c.ExpiresAt)
}

func (c Credentials) GetHeaders() map[string]string {
	switch c.Type {
	case AuthBearer, AuthCloudAuth:
		return map[string]string{"Authorization": "Bearer " + c.Token}
	default:
		return map[string]string{"x-api-key": c.Token}
	}
}

// AuthProvider resolves and refreshes credentials for one principal. Its
// sole required contract is GetCredentials/Refresh; EnsureValid is the one
// shared default behavior (re-fetch only if nil or expired) every concrete
// AuthProvider gets for free via the free function below, mirroring the
// original's AuthProvider.ensure_valid_credentials default method.
type AuthProvider interface {
	GetCredentials(ctx context.Context) (Credentials, error)
	Refresh(ctx context.Context, c Credentials) (Credentials, error)
	AuthType() AuthType
}

// EnsureValid returns cur as-is unless it is the zero value or expired, in
// which case it refreshes (or fetches fresh) credentials. Call sites must
// serialize this per-principal — see SingleFlightAuth below for the
// single-flight refresh guard required by the concurrency model (§5:
// "refresh must be single-flight per (provider, principal)").
func EnsureValid(ctx context.Context, p AuthProvider, cur Credentials) (Credentials, error) {
	if cur.Token == "" {
		return p.GetCredentials(ctx)
	}
	if cur.IsExpired() {
		return p.Refresh(ctx, cur)
	}
	return cur, nil
}

// SingleFlightAuth wraps an AuthProvider so concurrent GetCredentials calls
// for the same principal are serialized and share one refresh, matching the
// teacher's withSemaphore-style guarding generalized from a counting
// semaphore to one mutex held across the check-and-refresh.
type SingleFlightAuth struct {
	inner AuthProvider
	mu    sync.Mutex
	cur   Credentials
}

func NewSingleFlightAuth(inner AuthProvider) *SingleFlightAuth {
	return &SingleFlightAuth{inner: inner}
}

func (s *SingleFlightAuth) GetCredentials(ctx context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := EnsureValid(ctx, s.inner, s.cur)
	if err != nil {
		return Credentials{}, err
	}
	s.cur = c
	return c, nil
}

func (s *SingleFlightAuth) Refresh(ctx context.Context, c Credentials) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh, err := s.inner.Refresh(ctx, c)
	if err != nil {
		return Credentials{}, err
	}
	s.cur = fresh
	return fresh, nil
}

func (s *SingleFlightAuth) AuthType() AuthType { return s.inner.AuthType() }

// EnvAPIKeyAuth is the simplest AuthProvider: a static API key pulled from
// configuration at construction time, never expiring. This is the
// credential path every provider adapter in this module actually uses —
// richer OAuth/cloud-token AuthProviders are a capability the interface
// supports but no registered provider here needs.
type EnvAPIKeyAuth struct {
	APIKey string
}

func (e EnvAPIKeyAuth) GetCredentials(_ context.Context) (Credentials, error) {
	return Credentials{Token: e.APIKey, Type: AuthAPIKey}, nil
}

func (e EnvAPIKeyAuth) Refresh(_ context.Context, c Credentials) (Credentials, error) {
	return c, nil
}

func (e EnvAPIKeyAuth) AuthType() AuthType { return AuthAPIKey }
