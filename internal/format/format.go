// Package format is the static policy table for output formats: instruction
// text, extension, combine strategy, serializer and optional record schema.
package format

import (
	"github.com/joseph-ayodele/dataset-generator/constants"
)

// BaseInstruction prefixes every system message.
const BaseInstruction = "You are a data formatting expert. Your task is to convert the given content into the specified format while preserving the important information."

// CombineStrategy selects how per-fragment outputs are merged.
type CombineStrategy int

const (
	CombineConcat CombineStrategy = iota
	CombineJSONLines
	CombineTabular
)

func (c CombineStrategy) String() string {
	switch c {
	case CombineJSONLines:
		return "jsonl"
	case CombineTabular:
		return "tabular"
	default:
		return "concat"
	}
}

// SerializeStrategy selects the on-disk convention.
type SerializeStrategy int

const (
	SerializeText SerializeStrategy = iota
	SerializeJSONL
	SerializeCSV
)

func (s SerializeStrategy) String() string {
	switch s {
	case SerializeJSONL:
		return "jsonl"
	case SerializeCSV:
		return "csv"
	default:
		return "text"
	}
}

// Policy is one row of the table.
type Policy struct {
	Format      constants.OutputFormat
	Instruction string
	Extension   string
	Combine     CombineStrategy
	Serialize   SerializeStrategy
	// Schema describes one output record; nil when records are not JSON objects.
	Schema map[string]any
}

// SystemMessage is the base instruction followed by the format instruction.
func (p Policy) SystemMessage() string {
	return BaseInstruction + "\n\n" + p.Instruction
}

// Tabular reports whether outputs are header + rows.
func (p Policy) Tabular() bool { return p.Serialize == SerializeCSV }

var defaultPolicy = Policy{
	Extension: ".txt",
	Combine:   CombineConcat,
	Serialize: SerializeText,
}

var table = map[constants.OutputFormat]Policy{
	constants.FormatAlpaca: {
		Instruction: "Format the content into clear instruction-input-output JSON format. Each section should be concise and meaningful.\n" +
			`Structure: {"instruction": "...", "input": "...", "output": "..."}`,
		Extension: ".txt",
		Schema:    objectSchema("instruction", "input", "output"),
	},
	constants.FormatPromptCompletion: {
		Instruction: "Create natural prompt-completion pairs from the content.\n" +
			`Structure: {"prompt": "...", "completion": "..."}`,
		Extension: ".txt",
		Schema:    objectSchema("prompt", "completion"),
	},
	constants.FormatChat: {
		Instruction: "Convert content into a flowing conversation format.\n" +
			`Structure: {"messages": [{"role": "system"/"user"/"assistant", "content": "..."}]}`,
		Extension: ".txt",
		Schema:    chatSchema(),
	},
	constants.FormatQA: {
		Instruction: "Extract key questions and answers from the content.\n" +
			`Structure: {"question": "...", "answer": "..."}`,
		Extension: ".txt",
		Schema:    objectSchema("question", "answer"),
	},
	constants.FormatInstructionContextResponse: {
		Extension: ".txt",
		Schema:    objectSchema("instruction", "context", "response"),
	},
	constants.FormatJSONL: {
		Instruction: "Create JSONL format with text and summary for each logical section.\n" +
			`Structure: {"text": "...", "summary": "..."}`,
		Extension: ".jsonl",
		Combine:   CombineJSONLines,
		Serialize: SerializeJSONL,
		Schema:    objectSchema("text", "summary"),
	},
	constants.FormatCSV: {
		Instruction: "Convert content into CSV format with relevant columns.",
		Extension:   ".csv",
		Combine:     CombineTabular,
		Serialize:   SerializeCSV,
	},
	constants.FormatTable: {
		Instruction: "Create a structured table with appropriate headers and data rows.",
		Extension:   ".csv",
		Combine:     CombineTabular,
		Serialize:   SerializeCSV,
	},
}

// Lookup returns the policy for f. Unknown tags get the default policy with
// Format set to the tag as given.
func Lookup(f constants.OutputFormat) Policy {
	p, ok := table[f]
	if !ok {
		p = defaultPolicy
	}
	p.Format = f
	return p
}

// Known reports whether f has its own table row.
func Known(f constants.OutputFormat) bool {
	_, ok := table[f]
	return ok
}

func objectSchema(fields ...string) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"required":   fields,
		"properties": props,
	}
}

func chatSchema() map[string]any {
	return map[string]any{
		"$schema":  "https://json-schema.org/draft/2020-12/schema",
		"type":     "object",
		"required": []string{"messages"},
		"properties": map[string]any{
			"messages": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []string{"role", "content"},
					"properties": map[string]any{
						"role":    map[string]any{"type": "string", "enum": []string{"system", "user", "assistant"}},
						"content": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}
