package errs

import "errors"

var (
	// ErrTokenNotFound covers both a missing token file and one that fails
	// to parse; OAuth2 has effectively never been initialised in either case.
	ErrTokenNotFound = errors.New("oauth2 token has not been initialised")

	ErrConfigNotFound = errors.New("configuration file not found (run 'courier configure' to create one)")

	ErrNoRecipient = errors.New("no recipient specified")

	ErrNoViableTransport = errors.New("no viable transport strategy")
)
