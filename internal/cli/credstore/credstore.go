// Package credstore persists the access/refresh token pair across process
// restarts. The two tokens travel together: SaveTokens and Clear always
// touch both keys, so storage never holds half a credential pair under
// normal operation.
package credstore

// Store is the persisted credential store. Absent tokens read back as ""
// with a nil error; errors are reserved for real storage failures.
type Store interface {
	// SaveTokens writes both tokens, rolling back the access token if the
	// refresh token write fails.
	SaveTokens(access, refresh string) error
	// SaveAccessToken replaces only the access token (token rotation).
	SaveAccessToken(access string) error
	AccessToken() (string, error)
	RefreshToken() (string, error)
	// Clear removes both tokens. Missing keys are not an error.
	Clear() error
}
