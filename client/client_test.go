package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-partner-client/accounts"
	"github.com/jrsteele09/go-partner-client/accounts/repofakes"
	"github.com/jrsteele09/go-partner-client/client"
	"github.com/jrsteele09/go-partner-client/dispatch"
	"github.com/jrsteele09/go-partner-client/envelope"
	"github.com/jrsteele09/go-partner-client/internal/errors"
	"github.com/jrsteele09/go-partner-client/session"
	"github.com/jrsteele09/go-partner-client/token"
)

const (
	apiKey     = "client-test-api-key"
	tokenPath  = "api/v8/auth/token"
	numberOne  = int64(6281234567890)
	numberTwo  = int64(6289876543210)
	callerID   = "u1"
	profileURL = "api/v8/profile"
)

// partnerStub is an httptest-backed partner API: a token endpoint that
// rotates refresh tokens (R0 -> R1 -> R2...) and a profile endpoint that
// requires the bearer token issued by the most recent exchange.
type partnerStub struct {
	t *testing.T

	mu        sync.Mutex
	exchanges int
	current   string // refresh token currently accepted
	liveID    string // id token most recently issued

	server *httptest.Server
}

func newPartnerStub(t *testing.T, seed string) *partnerStub {
	t.Helper()
	p := &partnerStub{t: t, current: seed}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.server.Close)
	return p
}

func (p *partnerStub) handle(w http.ResponseWriter, r *http.Request) {
	var reqEnvelope envelope.EncryptedBody
	require.NoError(p.t, json.NewDecoder(r.Body).Decode(&reqEnvelope))

	plaintext, err := envelope.Open(reqEnvelope, apiKey)
	require.NoError(p.t, err)

	var respBody any
	switch {
	case strings.HasSuffix(r.URL.Path, tokenPath):
		respBody = p.handleExchange(plaintext)
	default:
		respBody = p.handleProfile(r)
	}

	sealed, err := envelope.Seal("POST", r.URL.Path, "", respBody, apiKey)
	require.NoError(p.t, err)
	require.NoError(p.t, json.NewEncoder(w).Encode(sealed.EncryptedBody))
}

func (p *partnerStub) handleExchange(plaintext json.RawMessage) any {
	p.mu.Lock()
	defer p.mu.Unlock()

	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(p.t, json.Unmarshal(plaintext, &payload))

	if payload.RefreshToken != p.current {
		return map[string]any{"status": "FAILED", "error": "INVALID_REFRESH_TOKEN"}
	}

	p.exchanges++
	p.current = fmt.Sprintf("R%d", p.exchanges)
	p.liveID = fmt.Sprintf("I%d", p.exchanges)
	return map[string]any{
		"status": "SUCCESS",
		"data": token.Bundle{
			RefreshToken: p.current,
			AccessToken:  fmt.Sprintf("A%d", p.exchanges),
			IDToken:      p.liveID,
		},
	}
}

func (p *partnerStub) handleProfile(r *http.Request) any {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+p.liveID {
		return map[string]any{"status": "FAILED", "error": "UNAUTHORIZED"}
	}
	return map[string]any{
		"status": "SUCCESS",
		"data":   map[string]any{"profile": map[string]any{"subscription_type": "PRE"}},
	}
}

func (p *partnerStub) exchangeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exchanges
}

func (p *partnerStub) currentRefreshToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

type fixture struct {
	client  *client.Client
	repo    *repofakes.FakeAccountRepo
	partner *partnerStub
	now     time.Time
	nowMu   sync.Mutex
}

func (f *fixture) advance(d time.Duration) {
	f.nowMu.Lock()
	defer f.nowMu.Unlock()
	f.now = f.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:    repofakes.NewFakeAccountRepo(),
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		partner: newPartnerStub(t, "R0"),
	}
	require.NoError(t, f.repo.Upsert(accounts.Account{Number: numberOne, RefreshToken: "R0"}))

	dispatcher, err := dispatch.New(f.partner.server.URL)
	require.NoError(t, err)

	exchanger, err := token.NewPartnerExchanger(dispatcher, apiKey, tokenPath)
	require.NoError(t, err)

	cache, err := session.NewCache(f.repo, exchanger, session.WithNowFunc(func() time.Time {
		f.nowMu.Lock()
		defer f.nowMu.Unlock()
		return f.now
	}))
	require.NoError(t, err)

	c, err := client.New(apiKey, client.Deps{Accounts: f.repo, Cache: cache, Dispatcher: dispatcher})
	require.NoError(t, err)
	f.client = c
	return f
}

func TestEndToEndActivationRotationRenewal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Activation exchanges R0 and persists the rotated R1.
	require.NoError(t, f.client.Activate(ctx, callerID, numberOne))

	listed, err := f.client.ListAccounts()
	require.NoError(t, err)
	require.Equal(t, "R1", listed[0].RefreshToken)

	bundle, err := f.client.CurrentBundle(ctx, callerID)
	require.NoError(t, err)
	require.Equal(t, "R1", bundle.RefreshToken)
	require.Equal(t, "I1", bundle.IDToken)

	// 400 seconds later the bundle is stale: the next read renews to R2
	// and persists it.
	f.advance(400 * time.Second)
	bundle, err = f.client.CurrentBundle(ctx, callerID)
	require.NoError(t, err)
	require.Equal(t, "R2", bundle.RefreshToken)

	listed, err = f.client.ListAccounts()
	require.NoError(t, err)
	require.Equal(t, "R2", listed[0].RefreshToken)
	require.Equal(t, 2, f.partner.exchangeCount())
}

func TestDispatchUsesLiveBearerToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.client.Activate(ctx, callerID, numberOne))

	raw, err := f.client.Dispatch(ctx, callerID, "POST", profileURL, map[string]any{"lang": "en"})
	require.NoError(t, err)

	var decoded struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "SUCCESS", decoded.Status)
}

func TestDispatchWithoutSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Dispatch(context.Background(), "nobody", "POST", profileURL, map[string]any{})
	require.ErrorIs(t, err, errors.ErrNoActiveSession)
}

func TestActivateUnknownAccountLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)

	err := f.client.Activate(context.Background(), callerID, 12345)
	require.ErrorIs(t, err, errors.ErrCredentialNotFound)

	require.Equal(t, 0, f.partner.exchangeCount())
	listed, err := f.client.ListAccounts()
	require.NoError(t, err)
	require.Equal(t, "R0", listed[0].RefreshToken)
}

func TestRemoveAccountRebindsToFirstRemaining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.client.Activate(ctx, callerID, numberOne))

	// A second stored account; the partner stub only tracks one rotation
	// chain, so seed it with the token the stub currently accepts.
	require.NoError(t, f.client.AddAccount(numberTwo, f.partner.currentRefreshToken()))

	require.NoError(t, f.client.RemoveAccount(ctx, numberOne))

	listed, err := f.client.ListAccounts()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, numberTwo, listed[0].Number)

	// The caller was re-bound to the remaining account.
	bundle, err := f.client.CurrentBundle(ctx, callerID)
	require.NoError(t, err)
	require.NotEmpty(t, bundle.IDToken)
}

func TestRemoveLastAccountLeavesNoActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.client.Activate(ctx, callerID, numberOne))
	require.NoError(t, f.client.RemoveAccount(ctx, numberOne))

	listed, err := f.client.ListAccounts()
	require.NoError(t, err)
	require.Empty(t, listed)

	_, err = f.client.CurrentBundle(ctx, callerID)
	require.ErrorIs(t, err, errors.ErrNoActiveSession)
}

func TestAddAccountRequiresToken(t *testing.T) {
	f := newFixture(t)
	require.Error(t, f.client.AddAccount(numberTwo, ""))
}

func TestNewValidatesDeps(t *testing.T) {
	f := newFixture(t)

	_, err := client.New("", client.Deps{})
	require.Error(t, err)

	_, err = client.New(apiKey, client.Deps{Accounts: f.repo})
	require.Error(t, err)
}
