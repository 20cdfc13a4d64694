package config

import (
	"strconv"
	"time"
)

type SessionConfig interface {
	GetStalenessWindow() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetStalenessWindow returns the age past which a cached token bundle is
// renewed before use rather than handed out as-is.
func (Session) GetStalenessWindow() time.Duration {
	seconds, err := strconv.Atoi(GetEnv("SESSION_STALENESS_SECONDS", "300"))
	if err != nil || seconds <= 0 {
		seconds = 300
	}
	return time.Duration(seconds) * time.Second
}
