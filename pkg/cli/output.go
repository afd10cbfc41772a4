package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/itchyny/gojq"
)

// OutputFormat is the output format type.
type OutputFormat string

const (
	// FormatYAML outputs YAML. It is the default.
	FormatYAML OutputFormat = "yaml"
	// FormatJSON outputs indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatRaw writes strings and bytes as is and falls back to YAML.
	FormatRaw OutputFormat = "raw"
)

// ParseOutputFormat validates a format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case "", FormatYAML:
		return FormatYAML, nil
	case FormatJSON, FormatRaw:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// OutputOptions configures Output.
type OutputOptions struct {
	Format OutputFormat

	// JQ filters the result with a jq expression before formatting. With more
	// than one result the results are output as a list.
	JQ string

	// Writer defaults to os.Stdout.
	Writer io.Writer
}

// Output writes result in the configured format.
func Output(result any, opts OutputOptions) error {
	var w io.Writer = os.Stdout
	if opts.Writer != nil {
		w = opts.Writer
	}

	if opts.JQ != "" {
		filtered, err := FilterJQ(result, opts.JQ)
		if err != nil {
			return err
		}
		result = filtered
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML, "":
		return outputYAML(w, result)
	case FormatRaw:
		switch v := result.(type) {
		case []byte:
			_, err := w.Write(v)
			return err
		case string:
			_, err := io.WriteString(w, v+"\n")
			return err
		}
		return outputYAML(w, result)
	}
	return fmt.Errorf("unsupported output format: %s", opts.Format)
}

func outputYAML(w io.Writer, result any) error {
	// Enum types render by their JSON names.
	data, err := yaml.MarshalWithOptions(result, yaml.UseJSONMarshaler())
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// FilterJQ runs expr over the JSON form of v. A single result is returned as
// is; several results are returned as a list.
func FilterJQ(v any, expr string) (any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	input, err := toJSONValue(v)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := query.Run(input)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := out.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		results = append(results, out)
	}
	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

// toJSONValue converts v to the generic values gojq accepts.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jq input: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal jq input: %w", err)
	}
	return out, nil
}

// PrintSuccess prints a success message with a checkmark.
func PrintSuccess(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
