package authz

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sofrapos/sofra/pkg/logger"
	"github.com/sofrapos/sofra/pkg/session"
)

// ErrUnauthenticated is returned by a ProfileFetcher when the backend
// explicitly rejects the credentials (401). It is the only failure that
// clears cached state; everything else keeps the last-known-good principal.
var ErrUnauthenticated = errors.New("authz: unauthenticated")

// ProfileFetcher retrieves the current principal's profile from the backend.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, token string) (Profile, error)
}

// State describes where the resolver is in its load cycle.
type State int

const (
	// StateLoading covers both "never loaded" and "refresh in flight".
	StateLoading State = iota
	// StateReady means the last refresh succeeded.
	StateReady
	// StateError means the last refresh failed transiently; cached state, if
	// any, is still exposed.
	StateError
	// StateUnauthenticated means the backend rejected the credentials.
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// Resolver caches the principal and answers permission questions. All
// predicates are safe for concurrent use; callers should re-check after
// Refresh completes rather than assuming a one-time answer.
type Resolver struct {
	store   session.Store
	fetch   ProfileFetcher
	timeout time.Duration

	mu        sync.RWMutex
	principal *Principal
	perms     PermissionSet
	state     State
	loaded    bool // first Refresh completed successfully
	lastErr   error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout bounds each Refresh call. The zero default is 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewResolver builds a resolver over the given session store and profile
// fetcher.
func NewResolver(store session.Store, fetch ProfileFetcher, opts ...Option) *Resolver {
	r := &Resolver{
		store:   store,
		fetch:   fetch,
		timeout: 10 * time.Second,
		state:   StateLoading,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadCached populates the resolver from the session store, if a snapshot
// exists. It never fails: malformed snapshots are discarded silently. The
// cached principal is provisional — predicates stay fail-closed for non-admin
// roles until the first Refresh succeeds.
func (r *Resolver) LoadCached() {
	raw, ok := r.store.LoadPrincipal()
	if !ok {
		return
	}

	p, set, ok := decodeSnapshot(raw)
	if !ok {
		logger.Debug("authz: discarding malformed principal snapshot")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.principal = &p
	r.perms = set
}

// Refresh fetches a fresh profile and replaces the resolver state.
//
// On success the resolved snapshot is persisted wholesale to the session
// store. A transient failure records an error state but keeps the previous
// principal, so the UI never flickers to "logged out" while the backend is
// briefly unreachable. An explicit 401 clears everything.
func (r *Resolver) Refresh(ctx context.Context) error {
	token, _ := r.store.Token()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	profile, err := r.fetch.FetchProfile(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			r.reset()
			return err
		}

		r.mu.Lock()
		r.state = StateError
		r.lastErr = err
		r.mu.Unlock()

		logger.Warn("authz: profile refresh failed", "error", err)
		return err
	}

	principal, set, dropped := resolve(profile)
	if dropped > 0 {
		logger.Warn("authz: dropped malformed permission tokens", "count", dropped)
	}

	r.mu.Lock()
	r.principal = &principal
	r.perms = set
	r.state = StateReady
	r.loaded = true
	r.lastErr = nil
	r.mu.Unlock()

	if raw, err := json.Marshal(principal); err == nil {
		if err := r.store.SavePrincipal(raw); err != nil {
			logger.Warn("authz: persisting principal snapshot failed", "error", err)
		}
	}
	return nil
}

// Clear drops all resolver and session state (logout).
func (r *Resolver) Clear() {
	r.reset()
}

func (r *Resolver) reset() {
	r.mu.Lock()
	r.principal = nil
	r.perms = nil
	r.state = StateUnauthenticated
	r.loaded = false
	r.lastErr = ErrUnauthenticated
	r.mu.Unlock()

	if err := r.store.Clear(); err != nil {
		logger.Warn("authz: clearing session store failed", "error", err)
	}
}

// Principal returns a copy of the current principal, cached or resolved.
func (r *Resolver) Principal() (Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.principal == nil {
		return Principal{}, false
	}
	return *r.principal, true
}

// State reports the resolver's load state.
func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Err returns the last refresh error, if the resolver is in an error state.
func (r *Resolver) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// Loaded reports whether the first refresh has completed successfully.
func (r *Resolver) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// HasPermission reports whether the principal holds at least one of the
// required permissions (OR semantics). An empty requirement is vacuously
// true. Before the first successful refresh the answer is false — fail
// closed — except for the ADMIN bypass: an optimistically cached ADMIN role
// passes immediately so administrators never see a flash of hidden UI.
func (r *Resolver) HasPermission(required ...Permission) bool {
	if len(required) == 0 {
		return true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.isAdmin() {
		return true
	}
	if !r.loaded || r.principal == nil {
		return false
	}

	for _, p := range required {
		if r.perms.Has(p) {
			return true
		}
	}
	return false
}

// HasAnyPermission is HasPermission with list-form intent spelled out.
func (r *Resolver) HasAnyPermission(required []Permission) bool {
	return r.HasPermission(required...)
}

// HasRole reports whether the principal's role is one of the required roles.
// The ADMIN bypass applies here too, and non-admin roles fail closed until
// the first refresh completes.
func (r *Resolver) HasRole(required ...Role) bool {
	if len(required) == 0 {
		return true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.isAdmin() {
		return true
	}
	if !r.loaded || r.principal == nil {
		return false
	}

	for _, role := range required {
		if r.principal.Role == ParseRole(string(role)) {
			return true
		}
	}
	return false
}

// isAdmin checks the bypass under a held read lock. A cached, not-yet-
// refreshed ADMIN counts: that is the deliberate fail-open exception.
func (r *Resolver) isAdmin() bool {
	return r.principal != nil && r.principal.Role == RoleAdmin
}
