package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// printResult writes v as JSON, or text via the textFn, depending on format.
func printResult(w io.Writer, format string, v any, text func(io.Writer)) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		return nil
	}
	text(w)
	return nil
}
