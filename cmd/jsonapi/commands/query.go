package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fivetwenty-io/jsonapi-client/internal/config"
	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
	"github.com/fivetwenty-io/jsonapi-client/pkg/apiclient"
	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
	"github.com/spf13/cobra"
)

// operators that take a list of comma separated values
var listOperators = []string{jsonapi.OpIn, jsonapi.OpNotIn, jsonapi.OpBetween, jsonapi.OpNotBetween}

// multi-word operators, longest first
var phraseOperators = []string{jsonapi.OpIsNotNull, jsonapi.OpIsNull, jsonapi.OpNotBetween, jsonapi.OpNotIn}

// queryOptions holds the flags shaping a query.
type queryOptions struct {
	where   []string
	sort    []string
	include []string
	limit   int
	page    int
	perPage int
	noCache bool
}

func addQueryFlags(cmd *cobra.Command, opts *queryOptions) {
	cmd.Flags().StringArrayVarP(&opts.where, "where", "w", nil, `filter condition "path operator [value]", repeatable`)
	cmd.Flags().StringArrayVarP(&opts.sort, "sort", "s", nil, "sort by path[:desc], repeatable")
	cmd.Flags().StringSliceVarP(&opts.include, "include", "i", nil, "related resources to include")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum number of entries")
	cmd.Flags().IntVar(&opts.page, "page", 0, "page number, starting at 1")
	cmd.Flags().IntVar(&opts.perPage, "per-page", constants.DefaultPageSize, "entries per page when --page is set")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass HTTP caches")
}

// apply adds every flag value to q. Validation errors are kept by q.
func (opts *queryOptions) apply(q *jsonapi.Query) error {
	for _, where := range opts.where {
		cond, err := parseWhere(where)
		if err != nil {
			return err
		}

		q.Where(cond.path, cond.operator, cond.values...)
	}

	for _, sort := range opts.sort {
		path, direction := parseSort(sort)
		q.Sort(path, direction)
	}

	if len(opts.include) > 0 {
		q.Include(opts.include...)
	}

	if opts.limit > 0 {
		q.Limit(opts.limit)
	}

	if opts.page > 0 {
		q.Paginate(opts.page, opts.perPage)
	}

	if opts.noCache {
		q.NoCache()
	}

	return q.Err()
}

type whereCondition struct {
	path     string
	operator string
	values   []any
}

// parseWhere splits "path operator [value]". Values of list operators are
// comma separated.
func parseWhere(raw string) (whereCondition, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return whereCondition{}, fmt.Errorf("%w: %q", constants.ErrInvalidWhere, raw)
	}

	cond := whereCondition{path: fields[0]}
	rest := fields[1:]

	for _, phrase := range phraseOperators {
		words := strings.Fields(phrase)
		if len(rest) >= len(words) && strings.EqualFold(strings.Join(rest[:len(words)], " "), phrase) {
			cond.operator = phrase
			rest = rest[len(words):]

			break
		}
	}

	if cond.operator == "" {
		cond.operator = strings.ToUpper(rest[0])
		rest = rest[1:]
	}

	if len(rest) == 0 {
		return cond, nil
	}

	value := strings.Join(rest, " ")

	if slices.Contains(listOperators, cond.operator) {
		for _, item := range strings.Split(value, ",") {
			cond.values = append(cond.values, strings.TrimSpace(item))
		}

		return cond, nil
	}

	cond.values = []any{value}

	return cond, nil
}

// parseSort splits "path[:direction]".
func parseSort(raw string) (string, string) {
	path, direction, found := strings.Cut(raw, ":")
	if !found || direction == "" {
		return path, jsonapi.SortAsc
	}

	return path, direction
}

// NewQueryCommand creates the query command.
func NewQueryCommand(a *app) *cobra.Command {
	opts := &queryOptions{}

	var (
		all         bool
		batchSize   int
		concurrency int
		fields      []string
	)

	cmd := &cobra.Command{
		Use:   "query ENDPOINT",
		Short: "Query a collection",
		Long: `Fetch a collection and print its entries.

Filters use the Drupal JSON:API operators, for example:

  jsonapi query api/articles --where "status = 1" --where "title CONTAINS go" \
    --where "category.id IN a,b" --where "changed IS NOT NULL" --sort created:desc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			builder := apiclient.Models(client, args[0])

			err = opts.apply(builder.Query())
			if err != nil {
				return err
			}

			var results *jsonapi.ResultSet[*jsonapi.ResponseModel]

			switch {
			case all && concurrency > 1:
				results, err = builder.AllConcurrent(cmd.Context(), batchSize, concurrency)
			case all:
				results, err = builder.All(cmd.Context(), batchSize)
			default:
				results, err = builder.Get(cmd.Context())
			}

			if err != nil {
				return fmt.Errorf("failed to query %s: %w", args[0], err)
			}

			return a.render(results, fields)
		},
	}

	addQueryFlags(cmd, opts)
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().IntVar(&batchSize, "batch-size", constants.DefaultBatchSize, "page size used by --all")
	cmd.Flags().IntVar(&concurrency, "concurrency", constants.DefaultConcurrencyLimit, "pages fetched in parallel by --all, 1 fetches sequentially")
	cmd.Flags().StringSliceVarP(&fields, "fields", "f", nil, "columns of the table output, e.g. title,category.id")

	return cmd
}

// NewFindCommand creates the find command.
func NewFindCommand(a *app) *cobra.Command {
	var (
		include []string
		noCache bool
		fields  []string
	)

	cmd := &cobra.Command{
		Use:   "find ENDPOINT ID",
		Short: "Fetch a single resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			builder := apiclient.Models(client, args[0])
			if len(include) > 0 {
				builder.Include(include...)
			}

			if noCache {
				builder.NoCache()
			}

			model, err := builder.Find(cmd.Context(), args[1])
			if err != nil {
				return fmt.Errorf("failed to find %s/%s: %w", args[0], args[1], err)
			}

			results := jsonapi.NewResultSet(model)
			results.SetMeta(jsonapi.ResultSetMeta{Count: 1, Pages: 1, PerPage: 1})

			return a.render(results, fields)
		},
	}

	cmd.Flags().StringSliceVarP(&include, "include", "i", nil, "related resources to include")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass HTTP caches")
	cmd.Flags().StringSliceVarP(&fields, "fields", "f", nil, "columns of the table output")

	return cmd
}

// NewURLCommand creates the url command.
func NewURLCommand(a *app) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "url ENDPOINT",
		Short: "Print the URL a query would fetch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := jsonapi.NewQuery(args[0], jsonapi.WithLocale(a.loader.Viper().GetString(config.KeyLocale)))

			err := opts.apply(q)
			if err != nil {
				return err
			}

			relative := q.String()

			baseURL := a.loader.Viper().GetString(config.KeyBaseURL)
			if baseURL != "" {
				relative = apiclient.NormalizeBaseURL(baseURL) + "/" + relative
			}

			_, err = fmt.Fprintln(a.out, relative)

			return err
		},
	}

	addQueryFlags(cmd, opts)

	return cmd
}
