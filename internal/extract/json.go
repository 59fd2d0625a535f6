package extract

import (
	"bytes"
	"encoding/json"

	"github.com/joseph-ayodele/dataset-generator/internal/common"
)

// extractJSON re-indents a JSON document with two spaces. Key order is kept.
func extractJSON(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		return "", common.ExtractionError("parse json", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", common.ExtractionError("indent json", err)
	}
	return buf.String(), nil
}
