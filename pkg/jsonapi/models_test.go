package jsonapi_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
	"github.com/stretchr/testify/require"
)

type category struct {
	ID   string
	Name string
}

func (c *category) MapFrom(_ context.Context, rm *jsonapi.ResponseModel) error {
	c.ID = rm.ID()
	c.Name = rm.String("attributes.name")

	return nil
}

type tag struct {
	Label string
}

func (tg *tag) MapFrom(_ context.Context, rm *jsonapi.ResponseModel) error {
	tg.Label = rm.String("attributes.label")

	return nil
}

type article struct {
	ID       string
	Title    string
	Views    int
	Category any
	Tags     []any
}

func (a *article) MapFrom(ctx context.Context, rm *jsonapi.ResponseModel) error {
	a.ID = rm.ID()
	a.Title = rm.String("attributes.title")
	a.Views = rm.Int("attributes.views")

	var err error

	a.Category, err = rm.HasOne(ctx, "relationships.category")
	if err != nil {
		return err
	}

	a.Tags, err = rm.HasMany(ctx, "relationships.tags")

	return err
}

func newTestMapper() *jsonapi.AutoMapper {
	return jsonapi.NewAutoMapper(
		jsonapi.Register("article", func() jsonapi.Mappable { return &article{} }),
		jsonapi.Register("category", func() jsonapi.Mappable { return &category{} }),
		jsonapi.Register("tag", func() jsonapi.Mappable { return &tag{} }),
	)
}

// decodeJSON decodes a JSON literal into the generic tree used by RawResponse.
func decodeJSON(t *testing.T, raw string) any {
	t.Helper()

	var out any

	require.NoError(t, json.Unmarshal([]byte(raw), &out))

	return out
}

const articleJSON = `{
  "type": "article",
  "id": "a1",
  "attributes": {
    "title": "Rein",
    "views": 42,
    "rating": 4.5,
    "published": true,
    "subtitle": null,
    "keywords": ["go", "json"],
    "blocks": [{"text": "first"}, {"text": "second"}]
  },
  "relationships": {
    "category": {"data": {"type": "category", "id": "c1", "attributes": {"name": "News"}}},
    "author": {"data": null},
    "tags": {"data": [
      {"type": "tag", "id": "t1", "attributes": {"label": "one"}},
      {"type": "tag", "id": "t2", "attributes": {"label": "two"}},
      {"type": "unknown", "id": "u1"}
    ]}
  }
}`
