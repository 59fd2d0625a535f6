package extract

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/dataset-generator/internal/common"
)

var errBinary = errors.New("content is not text")

// extractText accepts UTF-8 text verbatim. Content that is not valid UTF-8
// or carries NUL bytes is rejected; the sniffed type only names it in the error.
func extractText(data []byte) (string, error) {
	if !isText(data) {
		mt := mimetype.Detect(data)
		return "", common.NewAppError(common.CodeUnsupportedContent, "unsupported content type "+mt.String(), fmt.Errorf("%w: %w", common.ErrExtraction, errBinary))
	}
	return string(data), nil
}

func isText(data []byte) bool {
	return utf8.Valid(data) && !bytes.Contains(data, []byte{0})
}
