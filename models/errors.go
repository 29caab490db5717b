package models

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrIntegrationMissing means no integration row exists for the
	// (user, provider) pair. The UI maps this to "not connected".
	ErrIntegrationMissing = errors.New("integration not connected")
)

// ValidationError rejects a malformed request before any side effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// TokenRefreshError means the OAuth refresh handshake failed. The stored
// token is left untouched; the caller must prompt a reconnect.
type TokenRefreshError struct {
	Provider Provider
	Err      error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("token refresh failed for %s: %v", e.Provider, e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// ExternalAPIError carries a non-2xx response from a provider API.
// Adapters never retry; the queue processor does.
type ExternalAPIError struct {
	Provider   Provider
	StatusCode int
	Message    string
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsSyncTokenExpired reports whether err is the provider telling us our
// incremental sync token is no longer valid (Google uses HTTP 410).
func IsSyncTokenExpired(err error) bool {
	var apiErr *ExternalAPIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusGone
	}

	return false
}
