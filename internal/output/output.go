// Package output formats review responses for the CLI.
//
// Two formats are supported: text (human-readable terminal output, the
// default) and json (the full structured response). Use [GetWriter] to
// obtain a [Writer] for a format string; [WriteResponse] handles destination
// selection between a file path and stdout.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/mreide/reviewd/internal/review"
)

// Writer writes a review response in a specific format.
type Writer interface {
	Write(w io.Writer, resp *review.Response) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteResponse writes the response to the given path, or stdout when the
// path is empty.
func WriteResponse(resp *review.Response, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, resp)
}
