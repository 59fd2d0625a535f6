package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/dataset-generator/internal/common"
)

// extractPDF concatenates the plain text of every page in page order.
// Line endings are folded to \n; nothing else is changed.
func extractPDF(data []byte) (text string, pages int, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = common.ExtractionError("parse pdf", fmt.Errorf("%v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, common.ExtractionError("open pdf", err)
	}

	var b strings.Builder
	pages = r.NumPage()
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", pages, common.ExtractionError(fmt.Sprintf("read pdf page %d", i), err)
		}
		b.WriteString(s)
	}
	return reCRLF.ReplaceAllString(b.String(), "\n"), pages, nil
}
