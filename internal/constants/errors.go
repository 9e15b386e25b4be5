package constants

import "errors"

// Authentication errors.
var (
	ErrStaticTokenCannotRefresh = errors.New("static token cannot be refreshed")
	ErrEmptyAccessToken         = errors.New("token response contained no access token")
	ErrTokenRequestNoURL        = errors.New("token URL is required")
)

// CLI errors.
var (
	ErrInvalidWhere        = errors.New(`invalid --where, expected "path operator [value]"`)
	ErrInvalidOutputFormat = errors.New("invalid output format")
	ErrNoEndpoint          = errors.New("endpoint argument is required")
	ErrNotATerminal        = errors.New("secret prompt requires a terminal")
)
