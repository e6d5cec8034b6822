package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"mindcanvas/internal/model"
)

// ExportJSON writes the document in its storage shape, indented.
func ExportJSON(w io.Writer, doc model.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(model.Document{
		Cards:       model.CloneCards(doc.Cards),
		Connections: model.CloneConnections(doc.Connections),
	})
}

// ImportJSON parses a document written by ExportJSON or found under the
// storage key.
func ImportJSON(b []byte) (model.Document, error) {
	var doc model.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		var se *json.SyntaxError
		line := 0
		if errors.As(err, &se) {
			line = bytes.Count(b[:min(int(se.Offset), len(b))], []byte("\n")) + 1
		}
		return model.Document{}, &ParseError{Format: JSON, Line: line, Msg: "invalid document", Err: err}
	}
	return doc, nil
}
