package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ledgerview/internal/results"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type RenderCmd struct {
	format string
}

func newRenderCmd() *cobra.Command {
	rc := &RenderCmd{}
	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Dispatch a result envelope and print the render instruction",
		Long: "Reads a {\"data_type\": ..., \"data\": ...} envelope from a file or stdin " +
			"and prints the instruction the dashboard would draw for it.",
		Args: cobra.MaximumNArgs(1),
		RunE: rc.run,
	}
	cmd.Flags().StringVarP(&rc.format, "format", "f", formatJSON, "Output format: json or yaml")
	return cmd
}

func (rc *RenderCmd) run(cmd *cobra.Command, args []string) error {
	if rc.format != formatJSON && rc.format != formatYAML {
		return fmt.Errorf("unsupported format %q: must be json or yaml", rc.format)
	}

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	b, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return writeInstruction(cmd.OutOrStdout(), renderEnvelope(b), rc.format)
}

// renderEnvelope never fails; malformed input renders as the placeholder.
func renderEnvelope(b []byte) results.RenderInstruction {
	r, err := results.Decode(b)
	if errors.Is(err, results.ErrMalformedPayload) {
		return results.Placeholder()
	}
	return results.Dispatch(r)
}

func writeInstruction(w io.Writer, in results.RenderInstruction, format string) error {
	b, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("encode instruction: %w", err)
	}
	if format == formatJSON {
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	// Going through the JSON form keeps field names and number formatting
	// identical between the two outputs.
	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return fmt.Errorf("convert to yaml: %w", err)
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}
