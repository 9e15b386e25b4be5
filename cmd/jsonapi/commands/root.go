package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fivetwenty-io/jsonapi-client/internal/config"
	"github.com/fivetwenty-io/jsonapi-client/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the state shared by every command of one invocation.
type app struct {
	loader *config.Loader
	logger *zap.Logger
	in     *os.File
	out    io.Writer
	errOut io.Writer

	promptSecret bool
	noTokenCache bool
}

// NewRootCommand creates the jsonapi command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	a := &app{
		loader: config.New(nil),
		logger: zap.NewNop(),
		in:     os.Stdin,
	}

	rootCmd := &cobra.Command{
		Use:   "jsonapi",
		Short: "JSON:API query CLI",
		Long: `A command-line interface for querying JSON:API servers.

Queries are built with the Drupal filter syntax: filter groups, sorting,
pagination, includes and locale prefixes. Results are printed as a table,
JSON or YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()

			return a.initConfig(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.jsonapi/config.yml)")
	flags.StringP("base-url", "u", "", "base URL of the JSON:API server")
	flags.String("token-url", "", "OAuth2 token endpoint (default is {base-url}/oauth/token)")
	flags.String("client-id", "", "OAuth2 client ID")
	flags.String("client-secret", "", "OAuth2 client secret")
	flags.String("username", "", "username for the password grant")
	flags.String("password", "", "password for the password grant")
	flags.StringP("access-token", "t", "", "bearer token sent as is")
	flags.StringP("locale", "l", "", "locale prefix of every request")
	flags.Duration("timeout", 0, "timeout of a single HTTP attempt")
	flags.Int("retry-max", 0, "maximum number of retries for transient failures")
	flags.String("user-agent", "", "User-Agent header")
	flags.Bool("debug", false, "log HTTP requests and responses")
	flags.StringP("output", "o", "", "output format (table, json, yaml); table on a terminal, json otherwise")
	flags.String("nats-url", "", "forward query events to this NATS server")
	flags.BoolP("verbose", "v", false, "verbose logging")
	flags.Bool("prompt-secret", false, "prompt for the client secret or password")
	flags.Bool("no-token-cache", false, "do not read or write $HOME/.jsonapi/tokens.yml")

	rootCmd.AddCommand(NewVersionCommand(a, version, commit, date))
	rootCmd.AddCommand(NewQueryCommand(a))
	rootCmd.AddCommand(NewFindCommand(a))
	rootCmd.AddCommand(NewURLCommand(a))
	rootCmd.AddCommand(NewConfigCommand(a))

	return rootCmd
}

func (a *app) initConfig(cmd *cobra.Command) error {
	err := a.loader.BindFlags(cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}

	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to read --config: %w", err)
	}

	err = a.loader.Read(configFile)
	if err != nil {
		return err
	}

	a.promptSecret, err = cmd.Flags().GetBool("prompt-secret")
	if err != nil {
		return fmt.Errorf("failed to read --prompt-secret: %w", err)
	}

	a.noTokenCache, err = cmd.Flags().GetBool("no-token-cache")
	if err != nil {
		return fmt.Errorf("failed to read --no-token-cache: %w", err)
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to read --verbose: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}

	logger, err := logging.NewLogger("dev", level)
	if err != nil {
		return err
	}

	a.logger = logger

	if verbose && a.loader.FileUsed() != "" {
		a.logger.Debug("Using config file", zap.String("path", a.loader.FileUsed()))
	}

	return nil
}
