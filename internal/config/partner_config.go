package config

import (
	"strconv"
	"time"
)

type PartnerConfig interface {
	GetBaseAPIURL() string
	GetAPIKey() string
	GetUserAgent() string
	GetVersionApp() string
	GetTokenPath() string
	GetHTTPTimeout() time.Duration
}

type Partner struct{}

var _ PartnerConfig = Partner{}

func (Partner) GetBaseAPIURL() string {
	return GetEnv("BASE_API_URL", "")
}

func (Partner) GetAPIKey() string {
	return GetEnv("API_KEY", "")
}

func (Partner) GetUserAgent() string {
	return GetEnv("UA", "okhttp/4.12.0")
}

// GetVersionApp returns the fixed client-version tag sent with every request.
func (Partner) GetVersionApp() string {
	return GetEnv("VERSION_APP", "8.9.0")
}

// GetTokenPath returns the partner path used for refresh-token exchange.
func (Partner) GetTokenPath() string {
	return GetEnv("TOKEN_PATH", "api/v8/auth/token")
}

func (Partner) GetHTTPTimeout() time.Duration {
	seconds, err := strconv.Atoi(GetEnv("HTTP_TIMEOUT_SECONDS", "30"))
	if err != nil || seconds <= 0 {
		seconds = 30
	}
	return time.Duration(seconds) * time.Second
}
