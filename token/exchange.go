package token

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-partner-client/dispatch"
	clienterrors "github.com/jrsteele09/go-partner-client/internal/errors"
)

// Exchanger trades a refresh token for a fresh Bundle.
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (*Bundle, error)
}

var _ Exchanger = (*PartnerExchanger)(nil)

// PartnerExchanger performs the exchange against the partner's token
// endpoint. The exchange travels through the same signed envelope as
// every other call; no bearer token is attached since the caller is, by
// definition, between identities.
type PartnerExchanger struct {
	dispatcher *dispatch.Dispatcher
	apiKey     string
	tokenPath  string
}

func NewPartnerExchanger(dispatcher *dispatch.Dispatcher, apiKey, tokenPath string) (*PartnerExchanger, error) {
	if dispatcher == nil {
		return nil, errors.New("[NewPartnerExchanger] dispatcher is required")
	}
	if apiKey == "" {
		return nil, errors.New("[NewPartnerExchanger] apiKey is required")
	}
	if tokenPath == "" {
		return nil, errors.New("[NewPartnerExchanger] tokenPath is required")
	}
	return &PartnerExchanger{
		dispatcher: dispatcher,
		apiKey:     apiKey,
		tokenPath:  tokenPath,
	}, nil
}

func (e *PartnerExchanger) Exchange(ctx context.Context, refreshToken string) (*Bundle, error) {
	payload := map[string]any{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}

	raw, err := e.dispatcher.Send(ctx, e.apiKey, "POST", e.tokenPath, "", payload)
	if err != nil {
		return nil, errors.Wrap(err, "[Exchange] token request")
	}

	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error"`
		Data   Bundle `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "[Exchange] parsing token response")
	}

	if resp.Status != "SUCCESS" || resp.Data.IDToken == "" || resp.Data.RefreshToken == "" {
		return nil, clienterrors.Wrapf(clienterrors.ErrRenewalFailed,
			"[Exchange] partner rejected exchange (status %q, error %q)", resp.Status, resp.Error)
	}
	return &resp.Data, nil
}
