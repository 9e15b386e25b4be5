package jsonapi

import (
	"context"

	"github.com/spf13/cast"
)

// Version is the only JSON:API version accepted by the response validation.
const Version = "1.0"

// RawResponse is a decoded JSON tree as delivered by the transport layer.
// Objects are map[string]any, arrays []any and numbers float64.
type RawResponse = any

// CachePolicy is passed opaquely to the HTTP collaborator.
type CachePolicy string

const (
	// CacheForce asks the transport to serve from cache when it can.
	CacheForce CachePolicy = "force-cache"

	// CacheNoStore asks the transport to bypass caches entirely.
	CacheNoStore CachePolicy = "no-store"
)

// RequestOptions are the per-request options handed to the HTTP collaborator.
type RequestOptions struct {
	Cache CachePolicy
}

// HTTPClient is the transport collaborator used by QueryBuilder.
type HTTPClient interface {
	Get(ctx context.Context, path string, opts RequestOptions) (RawResponse, error)
	Post(ctx context.Context, path string, body any, opts RequestOptions) (RawResponse, error)
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards every entry.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{}) {}
func (NopLogger) Info(string, map[string]interface{})  {}
func (NopLogger) Warn(string, map[string]interface{})  {}
func (NopLogger) Error(string, map[string]interface{}) {}

// isRawResponse reports whether value is an object or an array.
func isRawResponse(value RawResponse) bool {
	switch value.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// isResponseWithData reports whether value is an object with a "data" member.
func isResponseWithData(value any) bool {
	obj, ok := value.(map[string]any)
	if !ok {
		return false
	}

	_, ok = obj["data"]

	return ok
}

// responseErrors returns the error objects of a response with a non-empty
// "errors" array, or nil.
func responseErrors(value RawResponse) []ErrorObject {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	list, ok := obj["errors"].([]any)
	if !ok || len(list) == 0 {
		return nil
	}

	errs := make([]ErrorObject, 0, len(list))

	for _, item := range list {
		entry, _ := item.(map[string]any)
		errObj := ErrorObject{
			Title:  cast.ToString(entry["title"]),
			Status: cast.ToString(entry["status"]),
			Detail: cast.ToString(entry["detail"]),
		}

		if links, ok := entry["links"].(map[string]any); ok {
			errObj.Links = links
		}

		errs = append(errs, errObj)
	}

	return errs
}

// isJSONAPIResponse reports whether value is a JSON:API 1.0 document with data.
func isJSONAPIResponse(value RawResponse) bool {
	obj, ok := value.(map[string]any)
	if !ok {
		return false
	}

	descriptor, ok := obj["jsonapi"].(map[string]any)
	if !ok || cast.ToString(descriptor["version"]) != Version {
		return false
	}

	switch obj["data"].(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// validateResponse checks the error shape first, then the JSON:API shape.
func validateResponse(url string, value RawResponse) error {
	if errs := responseErrors(value); errs != nil {
		return &InvalidResponseError{URL: url, First: &errs[0], Errors: errs}
	}

	if !isJSONAPIResponse(value) {
		return &InvalidResponseError{URL: url, Reason: "not a JSON:API " + Version + " document"}
	}

	return nil
}

// responseCount reads meta.count, which servers send as a number or a string.
func responseCount(value RawResponse) (int, bool) {
	obj, _ := value.(map[string]any)
	meta, ok := obj["meta"].(map[string]any)
	if !ok {
		return 0, false
	}

	raw, ok := meta["count"]
	if !ok {
		return 0, false
	}

	count, err := cast.ToIntE(raw)
	if err != nil {
		return 0, false
	}

	return count, true
}
