package domain

import "errors"

var (
	ErrBlockedClient = errors.New("direct API access not allowed")
	ErrInvalidOrigin = errors.New("invalid request origin")
	ErrRateLimited   = errors.New("rate limit exceeded")
)

func IsBlockedClient(err error) bool {
	return errors.Is(err, ErrBlockedClient)
}

func IsInvalidOrigin(err error) bool {
	return errors.Is(err, ErrInvalidOrigin)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRejection indica se o erro é uma recusa esperada do gatekeeper e não uma falha interna.
func IsRejection(err error) bool {
	return IsBlockedClient(err) || IsInvalidOrigin(err) || IsRateLimited(err)
}
