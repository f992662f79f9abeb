package auth

import "errors"

// Token validation failures. Each one means the request has no principal.
var (
	ErrMissingToken     = errors.New("no bearer token supplied")
	ErrInvalidToken     = errors.New("bearer token is malformed or not signed by this service")
	ErrExpiredToken     = errors.New("bearer token expired")
	ErrTokenNotYetValid = errors.New("bearer token used before its issue time")
	// ErrWrongTokenType is returned for tokens whose type claim is not "access".
	ErrWrongTokenType = errors.New("bearer token is not an access token")
)

// IsAuthError reports whether err is one of the token validation failures.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrTokenNotYetValid) ||
		errors.Is(err, ErrWrongTokenType)
}
