package jsonapi_test

import (
	"testing"

	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
	"github.com/stretchr/testify/assert"
)

//nolint:funlen // Test functions can be longer for detailed testing
func TestQueryParams_Encode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		build    func(p *jsonapi.QueryParams)
		expected string
	}{
		{
			name:     "empty params",
			build:    func(*jsonapi.QueryParams) {},
			expected: "",
		},
		{
			name: "scalar values keep registration order",
			build: func(p *jsonapi.QueryParams) {
				p.Set("zeta", "1")
				p.Set("alpha", "2")
			},
			expected: "zeta=1&alpha=2",
		},
		{
			name: "list values are one-based",
			build: func(p *jsonapi.QueryParams) {
				p.SetList("ids", []string{"a", "b"})
			},
			expected: "ids%5B1%5D=a&ids%5B2%5D=b",
		},
		{
			name: "overwrite keeps the original position",
			build: func(p *jsonapi.QueryParams) {
				p.Set("a", "1")
				p.Set("b", "2")
				p.Set("a", "3")
			},
			expected: "a=3&b=2",
		},
		{
			name: "brackets and reserved characters are encoded",
			build: func(p *jsonapi.QueryParams) {
				p.Set("page[limit]", "10")
				p.Set("q", "a b=c,d")
			},
			expected: "page%5Blimit%5D=10&q=a%20b%3Dc%2Cd",
		},
		{
			name: "unreserved marks stay literal",
			build: func(p *jsonapi.QueryParams) {
				p.Set("q", "it's (a)*!~")
			},
			expected: "q=it's%20(a)*!~",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			params := jsonapi.NewQueryParams()
			tt.build(params)

			assert.Equal(t, tt.expected, params.Encode())
		})
	}
}

func TestQueryParams_Accessors(t *testing.T) {
	t.Parallel()

	params := jsonapi.NewQueryParams()
	params.Set("a", "1")
	params.SetList("b", []string{"x", "y"})

	value, ok := params.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", value)

	_, ok = params.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"x", "y"}, params.Values("b"))
	assert.True(t, params.Has("b"))
	assert.Equal(t, []string{"a", "b"}, params.Keys())
	assert.Equal(t, 2, params.Len())

	snapshot := params.Snapshot()
	assert.Equal(t, []jsonapi.Param{
		{Name: "a", Values: []string{"1"}},
		{Name: "b", Values: []string{"x", "y"}, List: true},
	}, snapshot)
}

func TestQueryParams_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	original := jsonapi.NewQueryParams()
	original.Set("a", "1")

	clone := original.Clone()
	clone.Set("a", "2")
	clone.Set("b", "3")

	assert.Equal(t, "a=1", original.Encode())
	assert.Equal(t, "a=2&b=3", clone.Encode())
}

func TestEncodeComponent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "%5B%5D", jsonapi.EncodeComponent("[]"))
	assert.Equal(t, "NOT%20IN", jsonapi.EncodeComponent("NOT IN"))
	assert.Equal(t, "%3E%3D", jsonapi.EncodeComponent(">="))
	assert.Equal(t, "%C3%A9", jsonapi.EncodeComponent("é"))
}
