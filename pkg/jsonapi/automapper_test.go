package jsonapi_test

import (
	"context"
	"testing"

	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMapper_MapsByType(t *testing.T) {
	t.Parallel()

	mapper := newTestMapper()
	rm := jsonapi.NewResponseModel(decodeJSON(t, `{"type":"category","id":"c9","attributes":{"name":"Sport"}}`), nil)

	mapped, err := mapper.Map(context.Background(), rm)
	require.NoError(t, err)
	assert.Equal(t, &category{ID: "c9", Name: "Sport"}, mapped)
}

func TestAutoMapper_UnregisteredReturnsResponseModel(t *testing.T) {
	t.Parallel()

	mapper := newTestMapper()
	rm := jsonapi.NewResponseModel(decodeJSON(t, `{"type":"page","id":"p1","attributes":{"title":"About"}}`), nil)

	mapped, err := mapper.Map(context.Background(), rm)
	require.NoError(t, err)

	same, ok := mapped.(*jsonapi.ResponseModel)
	require.True(t, ok)
	assert.Same(t, rm, same)
	assert.Equal(t, "About", same.Get("attributes.title", nil))
}

func TestAutoMapper_CustomSelectorAndOrder(t *testing.T) {
	t.Parallel()

	mapper := jsonapi.NewAutoMapper()
	mapper.Register(
		jsonapi.Register("News", func() jsonapi.Mappable { return &category{} }),
		jsonapi.Register("", func() jsonapi.Mappable { return &tag{} }),
	)
	mapper.SetSelector(func(rm *jsonapi.ResponseModel, discriminator string) bool {
		return discriminator == "" || rm.String("attributes.name") == discriminator
	})

	assert.Equal(t, []string{"News", ""}, mapper.Discriminators())

	news, err := mapper.Map(context.Background(),
		jsonapi.NewResponseModel(decodeJSON(t, `{"id":"1","attributes":{"name":"News"}}`), nil))
	require.NoError(t, err)
	assert.IsType(t, &category{}, news)

	other, err := mapper.Map(context.Background(),
		jsonapi.NewResponseModel(decodeJSON(t, `{"id":"2","attributes":{"name":"Other"}}`), nil))
	require.NoError(t, err)
	assert.IsType(t, &tag{}, other, "first matching registration wins")
}

func TestAutoMapper_RegisterReplaces(t *testing.T) {
	t.Parallel()

	mapper := newTestMapper()
	mapper.Register(jsonapi.Register("tag", func() jsonapi.Mappable { return &tag{} }))

	assert.Equal(t, []string{"tag"}, mapper.Discriminators())

	_, ok := mapper.Lookup(jsonapi.NewResponseModel(map[string]any{"type": "article"}, nil))
	assert.False(t, ok)
}

func TestAutoMapper_NilSelectorRestoresDefault(t *testing.T) {
	t.Parallel()

	mapper := newTestMapper()
	mapper.SetSelector(nil)

	_, ok := mapper.Lookup(jsonapi.NewResponseModel(map[string]any{"type": "tag"}, nil))
	assert.True(t, ok)
}
