package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for token requests.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry and concurrency limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// DefaultConcurrencyLimit limits concurrent page fetches.
	DefaultConcurrencyLimit = 3
)

// Pagination limits.
const (
	// DefaultPageSize is the default number of items per page.
	DefaultPageSize = 50

	// DefaultBatchSize is the page size used when fetching every page.
	DefaultBatchSize = 50
)

// Token handling.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second

	// DefaultTokenPath is appended to the base URL when no token URL is configured.
	DefaultTokenPath = "/oauth/token"
)

// HTTP header values.
const (
	// MediaTypeJSONAPI is the JSON:API media type.
	MediaTypeJSONAPI = "application/vnd.api+json"

	// MediaTypeForm is used for OAuth2 token requests.
	MediaTypeForm = "application/x-www-form-urlencoded"

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "jsonapi-client-go/1.0.0"
)

// Cache-Control values derived from the query cache policy.
const (
	// CacheControlNoStore bypasses every cache.
	CacheControlNoStore = "no-store"

	// CacheControlMaxStale accepts cached responses.
	CacheControlMaxStale = "max-stale"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// Display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// StringTruncationLength is the default length for truncating table cells.
	StringTruncationLength = 60
)

// Environment.
const (
	// EnvPrefix is the prefix of environment variables read by the CLI.
	EnvPrefix = "JSONAPI"

	// NATSSubjectPrefix prefixes subjects of forwarded query events.
	NATSSubjectPrefix = "jsonapi.events"
)
