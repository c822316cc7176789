package snowpark

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingAccount is returned when no account is configured.
	ErrMissingAccount = errors.New("snowpark: account is required")

	// ErrMissingUser is returned when no user is configured.
	ErrMissingUser = errors.New("snowpark: user is required")

	// ErrMissingKey is returned when neither private_key nor
	// private_key_file is configured.
	ErrMissingKey = errors.New("snowpark: private_key or private_key_file is required")

	// ErrSessionExpired is returned once the session token has expired.
	// It is transient: a reset signs a new token.
	ErrSessionExpired = errors.New("snowpark: session token expired")

	// ErrSessionClosed is returned by a closed Session.
	ErrSessionClosed = errors.New("snowpark: session closed")
)

// tokenExpiredCode is the Snowflake error code for an expired JWT.
const tokenExpiredCode = "390318"

// APIError is an error response from the SQL API.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	SQLState   string `json:"sqlState"`
	Message    string `json:"message"`
	Handle     string `json:"statementHandle"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("snowpark: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Transient reports whether another attempt, after a reset, may succeed:
// expired tokens, throttling and server errors.
func (e *APIError) Transient() bool {
	switch {
	case e.Code == tokenExpiredCode, e.StatusCode == http.StatusUnauthorized:
		return true
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= http.StatusInternalServerError:
		return true
	}
	return false
}
