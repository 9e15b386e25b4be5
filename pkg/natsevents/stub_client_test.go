package natsevents_test

import (
	"context"

	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
)

type stubClient struct{}

func (stubClient) Get(context.Context, string, jsonapi.RequestOptions) (jsonapi.RawResponse, error) {
	return map[string]any{
		"jsonapi": map[string]any{"version": "1.0"},
		"data":    []any{map[string]any{"type": "tag", "id": "1"}},
	}, nil
}

func (stubClient) Post(context.Context, string, any, jsonapi.RequestOptions) (jsonapi.RawResponse, error) {
	return nil, nil
}
