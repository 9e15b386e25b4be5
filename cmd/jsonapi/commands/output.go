package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/fivetwenty-io/jsonapi-client/internal/config"
	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cast"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// document is the JSON and YAML shape of a result set.
type document struct {
	Meta jsonapi.ResultSetMeta `json:"meta" yaml:"meta"`
	Data []any                 `json:"data" yaml:"data"`
}

// outputFormat returns the configured format, defaulting to table on a
// terminal and json otherwise.
func (a *app) outputFormat() (string, error) {
	format := strings.ToLower(a.loader.Viper().GetString(config.KeyOutput))
	if format == "" {
		format = constants.FormatJSON

		if file, ok := a.out.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
			format = constants.FormatTable
		}
	}

	switch format {
	case constants.FormatJSON, constants.FormatYAML, constants.FormatTable:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrInvalidOutputFormat, format)
	}
}

// encode writes value as JSON or YAML. It reports false for the table format.
func (a *app) encode(format string, value any) (bool, error) {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(a.out)
		encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

		return true, encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(a.out)
		defer func() { _ = encoder.Close() }()

		return true, encoder.Encode(value)
	default:
		return false, nil
	}
}

func (a *app) render(results *jsonapi.ResultSet[*jsonapi.ResponseModel], fields []string) error {
	format, err := a.outputFormat()
	if err != nil {
		return err
	}

	doc := document{
		Meta: results.Meta(),
		Data: jsonapi.MapResults(results, func(rm *jsonapi.ResponseModel, _ int) any { return rm.Raw() }),
	}

	done, err := a.encode(format, doc)
	if done || err != nil {
		return err
	}

	if len(fields) == 0 {
		fields = attributeNames(results)
	}

	table := tablewriter.NewWriter(a.out)
	header := []any{"ID", "TYPE"}
	for _, field := range fields {
		header = append(header, strings.ToUpper(field))
	}

	table.Header(header...)

	for _, rm := range results.Items() {
		row := []any{rm.ID(), rm.Type()}
		for _, field := range fields {
			row = append(row, cell(rm, field))
		}

		_ = table.Append(row...)
	}

	err = table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	_, err = fmt.Fprintf(a.errOut, "%d of %d entries\n", results.Len(), results.Meta().Count)

	return err
}

// attributeNames returns the sorted scalar attribute names of the first entry.
func attributeNames(results *jsonapi.ResultSet[*jsonapi.ResponseModel]) []string {
	first, ok := results.Get(0)
	if !ok {
		return nil
	}

	attributes, ok := first.Get("attributes", nil).(map[string]any)
	if !ok {
		return nil
	}

	names := make([]string, 0, len(attributes))
	for name, value := range attributes {
		switch value.(type) {
		case map[string]any, []any:
			continue
		}

		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// cell resolves field against the resource, then against its attributes.
func cell(rm *jsonapi.ResponseModel, field string) string {
	value, ok := rm.Lookup(field)
	if !ok {
		value, ok = rm.Lookup("attributes." + field)
	}

	if !ok || value == nil {
		return constants.NotAvailable
	}

	var text string

	switch value.(type) {
	case map[string]any, []any:
		encoded, err := json.Marshal(value)
		if err != nil {
			return constants.NotAvailable
		}

		text = string(encoded)
	default:
		text = cast.ToString(value)
	}

	if len(text) > constants.StringTruncationLength {
		text = text[:constants.StringTruncationLength-3] + "..."
	}

	return text
}
