// Package api provides thin typed wrappers over the client facade for
// the handful of partner endpoints every front-end needs. Business-level
// failures (a non-success status field) are returned as values, never as
// transport errors.
package api

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-partner-client/client"
)

const (
	profilePath = "api/v8/profile"
	balancePath = "api/v8/packages/balance-and-credit"
	appVersion  = "8.9.0"
)

// Service exposes typed partner calls for one deployment's client.
type Service struct {
	client *client.Client
}

func NewService(c *client.Client) (*Service, error) {
	if c == nil {
		return nil, errors.New("[api.NewService] client is required")
	}
	return &Service{client: c}, nil
}

// Profile is the subscriber profile subset consumers display.
type Profile struct {
	SubscriptionType string `json:"subscription_type"`
	Msisdn           string `json:"msisdn"`
	Name             string `json:"name"`
}

// Balance is the prepaid balance for the active account.
type Balance struct {
	Remaining int64 `json:"remaining"`
	ExpiredAt int64 `json:"expired_at"`
}

// Profile fetches the subscriber profile for callerID's account.
func (s *Service) Profile(ctx context.Context, callerID string) (*Profile, error) {
	bundle, err := s.client.CurrentBundle(ctx, callerID)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"access_token":  bundle.AccessToken,
		"app_version":   appVersion,
		"is_enterprise": false,
		"lang":          "en",
	}

	raw, err := s.client.Dispatch(ctx, callerID, "POST", profilePath, payload)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Status string `json:"status"`
		Error  string `json:"error"`
		Data   struct {
			Profile Profile `json:"profile"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.Wrap(err, "[Profile] parsing response")
	}
	if decoded.Status != "SUCCESS" {
		return nil, errors.Errorf("[Profile] partner status %q (%s)", decoded.Status, decoded.Error)
	}
	return &decoded.Data.Profile, nil
}

// Balance fetches the remaining balance for callerID's account.
func (s *Service) Balance(ctx context.Context, callerID string) (*Balance, error) {
	payload := map[string]any{
		"is_enterprise": false,
		"lang":          "en",
	}

	raw, err := s.client.Dispatch(ctx, callerID, "POST", balancePath, payload)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Status string `json:"status"`
		Error  string `json:"error"`
		Data   struct {
			Balance Balance `json:"balance"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.Wrap(err, "[Balance] parsing response")
	}
	if decoded.Status != "SUCCESS" {
		return nil, errors.Errorf("[Balance] partner status %q (%s)", decoded.Status, decoded.Error)
	}
	return &decoded.Data.Balance, nil
}
