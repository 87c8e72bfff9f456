package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// JsonOptions provides configuration for the JSON output
type JsonOptions struct {
	// Writer is the output destination (defaults to os.Stdout if nil)
	Writer io.Writer
	// Indent specifies if pretty-printing should be used
	Indent bool
	// IndentSize is the number of spaces used for each indentation level
	IndentSize int
}

// DefaultJsonOptions returns standard options for JSON printing
func DefaultJsonOptions() JsonOptions {
	return JsonOptions{
		Writer:     os.Stdout,
		Indent:     true,
		IndentSize: 2,
	}
}

// PrintJson prints the provided data as JSON with default options
func PrintJson(res any) error {
	return PrintJsonWithOptions(res, DefaultJsonOptions())
}

// PrintJsonWithOptions prints the provided data as JSON with the specified options
func PrintJsonWithOptions(res any, options JsonOptions) error {
	writer := options.Writer
	if writer == nil {
		writer = os.Stdout
	}

	encoder := json.NewEncoder(writer)
	if options.Indent {
		encoder.SetIndent("", strings.Repeat(" ", options.IndentSize))
	}

	if err := encoder.Encode(res); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
