// internal/output/json.go
package output

import (
	"encoding/json"
	"io"
)

// encodePretty writes v as indented JSON without HTML escaping.
func encodePretty(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteJSON writes the report as a single v1 JSON object.
func WriteJSON(w io.Writer, r Report) error {
	return encodePretty(w, ToAPI(r))
}
