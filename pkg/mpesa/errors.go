package mpesa

import (
	"fmt"
	"strings"
)

// ConfigError reports which credential variables are unset.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing M-Pesa credentials: " + strings.Join(e.Missing, ", ")
}

// AuthError means the OAuth handshake with the provider failed.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "failed to authenticate with M-Pesa: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// GatewayError is any non-2xx or transport failure from the provider. Body
// is kept for diagnostics; credentials never appear in it.
type GatewayError struct {
	Status int
	Body   string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return "M-Pesa API error: " + e.Err.Error()
	}
	return fmt.Sprintf("M-Pesa API error: status=%d body=%s", e.Status, e.Body)
}

func (e *GatewayError) Unwrap() error { return e.Err }
