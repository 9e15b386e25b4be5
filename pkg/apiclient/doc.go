// Package apiclient wires the retrying transport, OAuth2 authentication and
// the jsonapi registries into a client that executes queries.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/jsonapi-client/pkg/apiclient"
//	  "github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Client credentials against https://cms.example.com/oauth/token.
//	  cli, err := apiclient.New(ctx, &jsonapi.Config{
//	    BaseURL:      "cms.example.com",
//	    ClientID:     "client-id",
//	    ClientSecret: "client-secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  cli.RegisterModels(jsonapi.Register("node--article", func() jsonapi.Mappable { return &Article{} }))
//
//	  articles, err := apiclient.QueryModel(cli, func() *Article { return &Article{} })
//	  if err != nil { log.Fatal(err) }
//
//	  results, err := articles.Where("status", "=", 1).Paginate(1, 10).Get(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = results
//	}
//
// Authentication
//
// New selects a token manager from the config: an AccessToken is sent as is,
// and combined with a username and password it falls back to the password
// grant after the first 401. ClientID and ClientSecret use the
// client_credentials grant, Username and Password the password grant. With
// WithTokenStore, OAuth2 tokens are persisted per base URL and reused by later
// clients until they expire.
//
// Transport
//
// Requests are retried on connection errors, 5xx and 429 responses. A 401 is
// answered with one token refresh and one retry. Error responses carrying a
// JSON:API errors document are handed to the query layer, which reports them
// as *jsonapi.InvalidResponseError; other failures surface as
// *jsonapi.HTTPError or transport errors.
package apiclient
