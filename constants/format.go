package constants

// OutputFormat is the dataset format tag selected by the caller.
// Tags are matched case-sensitively.
type OutputFormat string

const (
	FormatAlpaca                     OutputFormat = "Alpaca Format"
	FormatPromptCompletion           OutputFormat = "Prompt-Completion Format"
	FormatChat                       OutputFormat = "Chat Format"
	FormatQA                         OutputFormat = "Q/A Format"
	FormatInstructionContextResponse OutputFormat = "Instruction-Context-Response Format"
	FormatJSONL                      OutputFormat = "JSONL"
	FormatCSV                        OutputFormat = "CSV"
	FormatTable                      OutputFormat = "Table Format"
)

var allFormats = []OutputFormat{
	FormatAlpaca,
	FormatPromptCompletion,
	FormatChat,
	FormatQA,
	FormatInstructionContextResponse,
	FormatJSONL,
	FormatCSV,
	FormatTable,
}

// Formats returns the closed set of known output formats in display order.
func Formats() []OutputFormat {
	out := make([]OutputFormat, len(allFormats))
	copy(out, allFormats)
	return out
}

// FormatNames returns the known format tags as strings.
func FormatNames() []string {
	result := make([]string, len(allFormats))
	for i, f := range allFormats {
		result[i] = string(f)
	}
	return result
}

// IsKnownFormat reports whether f belongs to the closed set.
func IsKnownFormat(f OutputFormat) bool {
	for _, known := range allFormats {
		if f == known {
			return true
		}
	}
	return false
}
