package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// writeConfig writes a config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), constants.ConfigFilePerm))

	return path
}

// run executes the CLI and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := NewRootCommand("1.2.3", "abc123", "2026-01-01")
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func newArticleServer(t *testing.T) *jsonapitest.Server {
	t.Helper()

	server := jsonapitest.New(jsonapitest.WithLocales("en"))
	t.Cleanup(server.Close)

	server.AddResources("api/articles",
		jsonapitest.NewResource("node--article", "a1", map[string]any{"title": "Go generics", "status": "1"}),
		jsonapitest.NewResource("node--article", "a2", map[string]any{"title": "Rust traits", "status": "0"}),
		jsonapitest.NewResource("node--article", "a3", map[string]any{"title": "Go iterators", "status": "1"}),
	)

	return server
}

func TestParseWhere(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    whereCondition
		wantErr error
	}{
		{name: "scalar", raw: "status = 1", want: whereCondition{path: "status", operator: "=", values: []any{"1"}}},
		{
			name: "value with spaces",
			raw:  "title contains hello world",
			want: whereCondition{path: "title", operator: "CONTAINS", values: []any{"hello world"}},
		},
		{
			name: "list",
			raw:  "category.id NOT IN a, b,c",
			want: whereCondition{path: "category.id", operator: "NOT IN", values: []any{"a", "b", "c"}},
		},
		{name: "between", raw: "created BETWEEN 1,2", want: whereCondition{path: "created", operator: "BETWEEN", values: []any{"1", "2"}}},
		{name: "is null", raw: "parent is null", want: whereCondition{path: "parent", operator: "IS NULL"}},
		{name: "is not null", raw: "parent IS NOT NULL", want: whereCondition{path: "parent", operator: "IS NOT NULL"}},
		{name: "missing operator", raw: "status", wantErr: constants.ErrInvalidWhere},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseWhere(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSort(t *testing.T) {
	t.Parallel()

	path, direction := parseSort("created:desc")
	assert.Equal(t, "created", path)
	assert.Equal(t, "desc", direction)

	path, direction = parseSort("title")
	assert.Equal(t, "title", path)
	assert.Equal(t, jsonapi.SortAsc, direction)
}

func TestURLCommand(t *testing.T) {
	t.Parallel()

	configFile := writeConfig(t, "base_url: cms.test/\nlocale: en\n")

	stdout, _, err := run(t, "url", "api/articles", "--config", configFile, "--sort", "created:desc", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t,
		"https://cms.test/en/api/articles/?sort%5Bg1%5D%5Bpath%5D=created&sort%5Bg1%5D%5Bdirection%5D=desc&page%5Blimit%5D=5\n",
		stdout)

	_, _, err = run(t, "url", "api/articles", "--config", configFile, "--where", "status LIKE 1")
	require.ErrorIs(t, err, jsonapi.ErrUnknownOperator)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestQueryCommand(t *testing.T) {
	t.Parallel()

	server := newArticleServer(t)
	configFile := writeConfig(t, "base_url: "+server.URL+"\n")

	t.Run("json output", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := run(t, "query", "api/articles", "--config", configFile, "-o", "json",
			"--where", "title CONTAINS Go", "--sort", "title:desc", "--locale", "en")
		require.NoError(t, err)

		var doc struct {
			Meta jsonapi.ResultSetMeta `json:"meta"`
			Data []map[string]any      `json:"data"`
		}

		require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
		require.Len(t, doc.Data, 2)
		assert.Equal(t, "a3", doc.Data[0]["id"])
		assert.Equal(t, "a1", doc.Data[1]["id"])
		assert.Equal(t, 2, doc.Meta.Count)
	})

	t.Run("all pages as yaml", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := run(t, "query", "api/articles", "--config", configFile, "-o", "yaml",
			"--all", "--batch-size", "1", "--concurrency", "2")
		require.NoError(t, err)

		var doc map[string]any

		require.NoError(t, yaml.Unmarshal([]byte(stdout), &doc))
		assert.Len(t, doc["data"], 3)
	})

	t.Run("table output", func(t *testing.T) {
		t.Parallel()

		stdout, stderr, err := run(t, "query", "api/articles", "--config", configFile, "-o", "table",
			"--fields", "title", "--page", "1", "--per-page", "2")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Go generics")
		assert.Contains(t, stdout, "Rust traits")
		assert.NotContains(t, stdout, "Go iterators")
		assert.Contains(t, stderr, "2 of 3 entries")
	})

	t.Run("invalid output format", func(t *testing.T) {
		t.Parallel()

		_, _, err := run(t, "query", "api/articles", "--config", configFile, "-o", "xml")
		require.ErrorIs(t, err, constants.ErrInvalidOutputFormat)
	})

	t.Run("error document", func(t *testing.T) {
		t.Parallel()

		_, _, err := run(t, "query", "api/missing", "--config", configFile, "-o", "json")
		require.ErrorIs(t, err, jsonapi.ErrInvalidResponse)
	})
}

func TestFindCommand(t *testing.T) {
	t.Parallel()

	server := newArticleServer(t)
	configFile := writeConfig(t, "base_url: "+server.URL+"\n")

	stdout, _, err := run(t, "find", "api/articles", "a2", "--config", configFile, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Rust traits")

	_, _, err = run(t, "find", "api/articles", "zz", "--config", configFile, "-o", "json")
	require.ErrorIs(t, err, jsonapi.ErrInvalidResponse)
}

func TestConfigCommand(t *testing.T) {
	t.Parallel()

	configFile := writeConfig(t, "base_url: https://cms.test\nclient_id: app\nclient_secret: s3cret\n")

	stdout, _, err := run(t, "config", "get", "client_id", "--config", configFile)
	require.NoError(t, err)
	assert.Equal(t, "app\n", stdout)

	_, _, err = run(t, "config", "get", "nope", "--config", configFile)
	require.ErrorIs(t, err, jsonapi.ErrUnknownConfigKey)

	stdout, _, err = run(t, "config", "show", "--config", configFile, "-o", "json")
	require.NoError(t, err)

	var settings map[string]string

	require.NoError(t, json.Unmarshal([]byte(stdout), &settings))
	assert.Equal(t, "https://cms.test", settings["base_url"])
	assert.Equal(t, constants.MaskedSecret, settings["client_secret"])
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	configFile := writeConfig(t, "output: json\n")

	stdout, _, err := run(t, "version", "--config", configFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.2.3","commit":"abc123","built":"2026-01-01"}`, stdout)

	stdout, _, err = run(t, "version", "--config", configFile, "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, stdout, "abc123")
}

func TestPromptSecretRequiresTerminal(t *testing.T) {
	t.Parallel()

	configFile := writeConfig(t, "base_url: https://cms.test\nclient_id: app\n")

	_, _, err := run(t, "query", "api/articles", "--config", configFile, "--prompt-secret", "--no-token-cache")
	require.ErrorIs(t, err, constants.ErrNotATerminal)
}
