package pipeline

import (
	"github.com/joseph-ayodele/dataset-generator/constants"
)

// Record is the per-file outcome returned to the caller. Successful records
// carry Converted, failed ones carry Error; the other is omitted from JSON.
type Record struct {
	Original  string                 `json:"original"`
	Converted string                 `json:"converted,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Status    constants.RecordStatus `json:"status"`
}

func success(original, converted string) Record {
	return Record{Original: original, Converted: converted, Status: constants.RecordSuccess}
}

func failure(original, message string) Record {
	return Record{Original: original, Error: message, Status: constants.RecordError}
}

// OK reports whether the file converted.
func (r Record) OK() bool { return r.Status == constants.RecordSuccess }

// Summarize counts successful and failed records.
func Summarize(records []Record) (succeeded, failed int) {
	for _, r := range records {
		if r.OK() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
