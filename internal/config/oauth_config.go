package config

import "time"

// OAuthConfig holds token lifetimes for the mock portal backend.
type OAuthConfig interface {
	GetRefreshTokenLength() int
	GetDefaultAccessTokenExpiry() time.Duration
	GetMemberAccessTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (OAuth) GetDefaultAccessTokenExpiry() time.Duration {
	return GetDuration("ACCESS_TOKEN_EXPIRY", 30*time.Minute)
}

func (OAuth) GetMemberAccessTokenExpiry() time.Duration {
	return GetDuration("MEMBER_ACCESS_TOKEN_EXPIRY", 15*time.Minute)
}

func (OAuth) GetDefaultRefreshTokenExpiry() time.Duration {
	return GetDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)
}
