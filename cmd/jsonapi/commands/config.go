package commands

import (
	"fmt"

	"github.com/fivetwenty-io/jsonapi-client/internal/config"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long:  "Display the settings resolved from flags, JSONAPI_* environment variables and the config file",
	}

	cmd.AddCommand(newConfigShowCommand(a))
	cmd.AddCommand(newConfigGetCommand(a))

	return cmd
}

func newConfigShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show every configured value",
		Long:  "Show every configured value with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := a.loader.Settings()

			format, err := a.outputFormat()
			if err != nil {
				return err
			}

			done, err := a.encode(format, settings)
			if done || err != nil {
				return err
			}

			table := tablewriter.NewWriter(a.out)
			table.Header("Key", "Value")

			for _, key := range config.Keys {
				if value, ok := settings[key]; ok {
					_ = table.Append(key, value)
				}
			}

			err = table.Render()
			if err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			if file := a.loader.FileUsed(); file != "" {
				_, err = fmt.Fprintf(a.errOut, "Config file: %s\n", file)
			}

			return err
		},
	}
}

func newConfigGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print one configured value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := a.loader.Lookup(args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(a.out, value)

			return err
		},
	}
}
