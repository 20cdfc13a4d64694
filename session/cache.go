package session

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-partner-client/accounts"
	clienterrors "github.com/jrsteele09/go-partner-client/internal/errors"
	"github.com/jrsteele09/go-partner-client/token"
)

// DefaultStalenessWindow is the age past which a cached bundle is renewed
// before being handed out.
const DefaultStalenessWindow = 300 * time.Second

// Cache holds the live token bundles for every active caller. One caller
// may be an interactive user or, in a multi-tenant host, one end-user id.
// A Cache must be constructed explicitly and shared by reference; there
// is no package-level instance.
//
// Each caller entry carries its own lock, so concurrent reads for the
// same stale caller collapse into a single renewal exchange while
// distinct callers never block each other.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	repo      accounts.Repo
	exchanger token.Exchanger
	staleness time.Duration
	nowFunc   func() time.Time
	logger    zerolog.Logger
}

// entry is one caller's session. Lifecycle: created by Activate, bundle
// replaced on every renewal, marked evicted on renewal failure or
// deactivation. An evicted entry is terminal; a fresh Activate installs
// a new one.
type entry struct {
	mu          sync.Mutex
	number      int64
	bundle      token.Bundle
	lastRefresh time.Time

	// evicted is atomic: Deactivate flips it while holding only the
	// cache lock, LiveBundle reads it while holding only the entry lock.
	evicted atomic.Bool
}

type CacheOption func(*Cache)

// WithStalenessWindow overrides the renewal threshold.
func WithStalenessWindow(window time.Duration) CacheOption {
	return func(c *Cache) {
		if window > 0 {
			c.staleness = window
		}
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache creates a session cache backed by the given credential store
// and token exchanger.
func NewCache(repo accounts.Repo, exchanger token.Exchanger, options ...CacheOption) (*Cache, error) {
	if repo == nil {
		return nil, errors.New("[NewCache] accounts repo is required")
	}
	if exchanger == nil {
		return nil, errors.New("[NewCache] exchanger is required")
	}

	cache := &Cache{
		entries:   make(map[string]*entry),
		repo:      repo,
		exchanger: exchanger,
		staleness: DefaultStalenessWindow,
		nowFunc:   time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(cache)
	}
	return cache, nil
}

// Activate binds callerID to the given account: it looks up the stored
// refresh credential, exchanges it for a fresh bundle, persists the
// rotated refresh token, and installs the session. On any failure the
// cache is left unchanged. Errors: ErrCredentialNotFound when no
// credential is stored for number; the exchange's own error otherwise.
func (c *Cache) Activate(ctx context.Context, callerID string, number int64) error {
	account, err := c.repo.Get(number)
	if err != nil {
		return errors.Wrapf(err, "[Activate] account %d", number)
	}

	bundle, err := c.exchanger.Exchange(ctx, account.RefreshToken)
	if err != nil {
		return errors.Wrapf(err, "[Activate] exchange for account %d", number)
	}

	if err := c.persistRotation(number, bundle.RefreshToken); err != nil {
		return errors.Wrap(err, "[Activate]")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[callerID]; ok {
		old.evicted.Store(true)
	}
	c.entries[callerID] = &entry{
		number:      number,
		bundle:      *bundle,
		lastRefresh: c.nowFunc(),
	}

	c.logger.Info().Str("callerID", callerID).Int64("number", number).Msg("session activated")
	return nil
}

// LiveBundle returns a token bundle for callerID that is younger than the
// staleness window, renewing it synchronously if needed. A renewal
// persists the rotated refresh token back to the credential store. If
// renewal fails the session is evicted and ErrRenewalFailed is returned:
// the caller must re-Activate. ErrNoActiveSession means there is nothing
// cached for callerID (never activated, or already evicted).
func (c *Cache) LiveBundle(ctx context.Context, callerID string) (*token.Bundle, error) {
	c.mu.Lock()
	e := c.entries[callerID]
	c.mu.Unlock()
	if e == nil {
		return nil, clienterrors.ErrNoActiveSession
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// A waiter that queued behind a failed renewal sees the eviction
	// here rather than retrying with the same stale refresh token.
	if e.evicted.Load() {
		return nil, clienterrors.ErrNoActiveSession
	}

	now := c.nowFunc()
	if now.Sub(e.lastRefresh) <= c.staleness {
		bundle := e.bundle
		return &bundle, nil
	}

	bundle, err := c.exchanger.Exchange(ctx, e.bundle.RefreshToken)
	if err != nil {
		c.evict(callerID, e)
		c.logger.Warn().Str("callerID", callerID).Int64("number", e.number).Err(err).Msg("renewal failed, session evicted")
		return nil, errors.Wrapf(clienterrors.ErrRenewalFailed, "[LiveBundle] caller %q: %v", callerID, err)
	}

	e.bundle = *bundle
	e.lastRefresh = now

	// The rotated refresh token must reach durable storage: the old one
	// may already be invalid. If the write fails the renewed bundle
	// stays live in memory (it is the only copy of a valid credential)
	// and the error is surfaced to the caller.
	if err := c.persistRotation(e.number, bundle.RefreshToken); err != nil {
		return nil, errors.Wrap(err, "[LiveBundle]")
	}

	c.logger.Info().Str("callerID", callerID).Int64("number", e.number).Msg("session renewed")
	copied := e.bundle
	return &copied, nil
}

// Deactivate removes every cached session bound to the given account and
// returns the caller ids that were evicted, in deterministic order.
func (c *Cache) Deactivate(number int64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var callers []string
	for callerID, e := range c.entries {
		if e.number != number {
			continue
		}
		e.evicted.Store(true)
		delete(c.entries, callerID)
		callers = append(callers, callerID)
	}
	sort.Strings(callers)

	if len(callers) > 0 {
		c.logger.Info().Int64("number", number).Strs("callers", callers).Msg("sessions deactivated")
	}
	return callers
}

// AccountNumber returns the account a caller's session is bound to.
func (c *Cache) AccountNumber(callerID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[callerID]
	if !ok {
		return 0, clienterrors.ErrNoActiveSession
	}
	return e.number, nil
}

func (c *Cache) persistRotation(number int64, refreshToken string) error {
	if err := c.repo.Upsert(accounts.Account{Number: number, RefreshToken: refreshToken}); err != nil {
		return errors.Wrapf(clienterrors.ErrCredentialStore, "persisting rotated token for %d: %v", number, err)
	}
	return nil
}

// evict removes e from the cache if the map still points at it. A newer
// Activate may have replaced the entry while a renewal was in flight;
// that replacement must survive.
func (c *Cache) evict(callerID string, e *entry) {
	e.evicted.Store(true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.entries[callerID]; ok && current == e {
		delete(c.entries, callerID)
	}
}
