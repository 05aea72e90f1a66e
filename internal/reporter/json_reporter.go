package reporter

import (
	"encoding/json"
	"io"
	"os"
)

// WriteJSONReport takes report data, formats it into JSON, and writes it to a file.
func WriteJSONReport(reportData *Report, outputPath string) error {
	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, reportData); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
