package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/platemap/pkg/errors"
)

// Output formats accepted by --output.
const (
	FormatText        = "text"
	FormatJSON        = "json"
	FormatYAML        = "yaml"
	FormatTableOutput = "table"
)

// tableProvider is implemented by results that render as a table.
type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// textRenderer is implemented by results with a console summary.
type textRenderer interface {
	RenderText(w io.Writer) error
}

// PrintResult writes data to stdout in the format held by the CLIContext.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := FormatJSON
	if cc, err := GetCLIContext(cmd); err == nil {
		format = cc.OutputFormat
	}
	return writeResult(cmd.OutOrStdout(), format, data)
}

func writeResult(w io.Writer, format string, data interface{}) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return writeJSON(w, data)
	case FormatYAML:
		return writeYAML(w, data)
	case FormatTableOutput:
		if tp, ok := data.(tableProvider); ok {
			_, err := io.WriteString(w, FormatTable(tp.TableHeaders(), tp.TableRows()))
			return err
		}
		return writeText(w, data)
	default:
		return writeText(w, data)
	}
}

func writeJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode json output")
	}
	return nil
}

// writeYAML goes through JSON so field names follow the json tags, then
// re-encodes the node tree in block style.
func writeYAML(w io.Writer, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode yaml output")
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode yaml output")
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode yaml output")
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func writeText(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case textRenderer:
		return v.RenderText(w)
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case fmt.Stringer:
		_, err := fmt.Fprintln(w, v.String())
		return err
	default:
		_, err := fmt.Fprintf(w, "%+v\n", v)
		return err
	}
}

// FormatTable renders headers and rows with tablewriter.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.Header(headers)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
	return buf.String()
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

// statusText colours a status word for console output.
func statusText(status string) string {
	switch status {
	case "complete", "OK_REACTION", "ok":
		return color.GreenString(status)
	case "incomplete", "FALLBACK_COMBINEMOLS":
		return color.YellowString(status)
	case "failed", "missing":
		return color.RedString(status)
	default:
		return status
	}
}

// kv writes aligned "key: value" summary lines.
func kv(w io.Writer, pairs ...string) error {
	width := 0
	for i := 0; i+1 < len(pairs); i += 2 {
		if len(pairs[i]) > width {
			width = len(pairs[i])
		}
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		if _, err := fmt.Fprintf(w, "%-*s  %s\n", width+1, pairs[i]+":", pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

//Personal.AI order the ending
