package auth

import (
	"crypto/subtle"
	"errors"
)

// Sentinel errors returned by credential and token checks.
var (
	// ErrAccessDenied indicates the presented access token does not match
	// the configured credential.
	ErrAccessDenied = errors.New("access denied")

	// ErrTokenInvalid indicates a JWT failed signature, expiry, or claim
	// validation.
	ErrTokenInvalid = errors.New("token invalid")
)

// VerifyAccessToken compares a presented credential against the configured
// access token in constant time.
func VerifyAccessToken(presented, configured string) error {
	if configured == "" {
		return ErrAccessDenied
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) != 1 {
		return ErrAccessDenied
	}
	return nil
}
