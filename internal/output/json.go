package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mreide/reviewd/internal/review"
)

// JSONWriter outputs the full response as JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, resp *review.Response) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err = w.Write(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
