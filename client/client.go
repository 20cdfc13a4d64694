// Package client assembles the signed request engine and the session
// cache into the surface consumers use: activate an account, dispatch a
// signed call on its behalf, manage the stored credentials.
package client

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-partner-client/accounts"
	"github.com/jrsteele09/go-partner-client/accounts/filerepo"
	"github.com/jrsteele09/go-partner-client/dispatch"
	"github.com/jrsteele09/go-partner-client/internal/config"
	"github.com/jrsteele09/go-partner-client/session"
	"github.com/jrsteele09/go-partner-client/token"
)

// Deps holds the collaborators a Client is built from.
type Deps struct {
	Accounts   accounts.Repo
	Cache      *session.Cache
	Dispatcher *dispatch.Dispatcher
}

// Client is the downstream surface for menus, web handlers and bot
// handlers. It is safe for concurrent use; all shared state lives in the
// session cache and the credential store, both of which synchronize
// internally.
type Client struct {
	deps   Deps
	apiKey string
	logger zerolog.Logger
}

type Option func(*Client)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client from explicit dependencies.
func New(apiKey string, deps Deps, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("[client.New] apiKey is required")
	}
	if deps.Accounts == nil {
		return nil, errors.New("[client.New] Accounts repo is required")
	}
	if deps.Cache == nil {
		return nil, errors.New("[client.New] Cache is required")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("[client.New] Dispatcher is required")
	}

	c := &Client{
		deps:   deps,
		apiKey: apiKey,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// NewFromConfig wires the full stack from configuration: file-backed
// credential store, dispatcher, partner token exchanger, and session
// cache.
func NewFromConfig(cfg config.Config, options ...Option) (*Client, error) {
	repo, err := filerepo.NewFileRepo(cfg.GetCredentialsFile())
	if err != nil {
		return nil, errors.Wrap(err, "[NewFromConfig] opening credential store")
	}

	dispatcher, err := dispatch.New(cfg.GetBaseAPIURL(),
		dispatch.WithTimeout(cfg.GetHTTPTimeout()),
		dispatch.WithUserAgent(cfg.GetUserAgent()),
		dispatch.WithVersionApp(cfg.GetVersionApp()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[NewFromConfig] creating dispatcher")
	}

	exchanger, err := token.NewPartnerExchanger(dispatcher, cfg.GetAPIKey(), cfg.GetTokenPath())
	if err != nil {
		return nil, errors.Wrap(err, "[NewFromConfig] creating exchanger")
	}

	cache, err := session.NewCache(repo, exchanger, session.WithStalenessWindow(cfg.GetStalenessWindow()))
	if err != nil {
		return nil, errors.Wrap(err, "[NewFromConfig] creating session cache")
	}

	return New(cfg.GetAPIKey(), Deps{Accounts: repo, Cache: cache, Dispatcher: dispatcher}, options...)
}

// Dispatch sends a signed business request on behalf of callerID's
// account and returns the decrypted response body. The caller must have
// an activated session; a stale one is renewed transparently. Transport
// and decode failures come back typed; a response whose business status
// indicates failure is data, not an error.
func (c *Client) Dispatch(ctx context.Context, callerID, method, path string, payload any) (json.RawMessage, error) {
	bundle, err := c.deps.Cache.LiveBundle(ctx, callerID)
	if err != nil {
		return nil, errors.Wrapf(err, "[Dispatch] caller %q", callerID)
	}
	return c.deps.Dispatcher.Send(ctx, c.apiKey, method, path, bundle.IDToken, payload)
}

// Activate binds callerID to a stored account, performing the initial
// token exchange.
func (c *Client) Activate(ctx context.Context, callerID string, number int64) error {
	return c.deps.Cache.Activate(ctx, callerID, number)
}

// CurrentBundle returns a live token bundle for callerID, renewing a
// stale one first.
func (c *Client) CurrentBundle(ctx context.Context, callerID string) (*token.Bundle, error) {
	return c.deps.Cache.LiveBundle(ctx, callerID)
}

// AddAccount stores (or replaces) the refresh credential for an account.
func (c *Client) AddAccount(number int64, refreshToken string) error {
	if refreshToken == "" {
		return errors.New("[AddAccount] refreshToken is required")
	}
	return c.deps.Accounts.Upsert(accounts.Account{Number: number, RefreshToken: refreshToken})
}

// ListAccounts returns the stored accounts in their persisted order.
func (c *Client) ListAccounts() ([]accounts.Account, error) {
	return c.deps.Accounts.List()
}

// RemoveAccount deletes an account's stored credential and tears down
// every session bound to it. Callers that were using the removed account
// are re-bound to the first remaining stored account; if none remains,
// or re-activation fails, they are left without an active session and
// must Activate again.
func (c *Client) RemoveAccount(ctx context.Context, number int64) error {
	if err := c.deps.Accounts.Remove(number); err != nil {
		return errors.Wrapf(err, "[RemoveAccount] account %d", number)
	}

	evictedCallers := c.deps.Cache.Deactivate(number)
	if len(evictedCallers) == 0 {
		return nil
	}

	remaining, err := c.deps.Accounts.List()
	if err != nil {
		return errors.Wrap(err, "[RemoveAccount] listing remaining accounts")
	}
	if len(remaining) == 0 {
		return nil
	}

	next := remaining[0].Number
	for _, callerID := range evictedCallers {
		if err := c.deps.Cache.Activate(ctx, callerID, next); err != nil {
			c.logger.Warn().Str("callerID", callerID).Int64("number", next).Err(err).
				Msg("could not rebind caller after account removal")
		}
	}
	return nil
}
