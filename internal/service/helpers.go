package service

import (
	"time"
)

// GetExpiresAt converts a provider expires_in into an absolute expiry.
// Providers that omit it get the zero time, which marks the token as
// never expiring.
func GetExpiresAt(expiresIn int) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}
