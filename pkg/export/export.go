// Package export renders formation results for the CLI.
package export

import (
	"encoding/json"
	"io"

	"github.com/kilianp07/rakeform/core/model"
)

// WriteJSON writes the result to w as indented JSON.
func WriteJSON(w io.Writer, res model.FormationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
