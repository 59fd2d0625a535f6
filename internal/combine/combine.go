// Package combine merges ordered per-fragment model outputs into one payload.
package combine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/dataset-generator/constants"
	"github.com/joseph-ayodele/dataset-generator/internal/common"
	"github.com/joseph-ayodele/dataset-generator/internal/format"
	"github.com/joseph-ayodele/dataset-generator/internal/llm"
)

// Combiner applies the policy's combine strategy.
//
// In lenient mode (the default) malformed JSONL lines are dropped silently.
// In strict mode the first malformed line, or the first line that does not
// match the format's record schema, fails the whole file.
type Combiner struct {
	strict  bool
	logger  *slog.Logger
	mu      sync.Mutex
	schemas map[constants.OutputFormat]*jsonschema.Schema
}

func New(strict bool, logger *slog.Logger) *Combiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Combiner{
		strict:  strict,
		logger:  logger,
		schemas: make(map[constants.OutputFormat]*jsonschema.Schema),
	}
}

// Combine merges outputs in order. Zero outputs give an empty string.
func (c *Combiner) Combine(p format.Policy, outputs []string) (string, error) {
	if len(outputs) == 0 {
		return "", nil
	}
	switch p.Combine {
	case format.CombineJSONLines:
		return c.jsonLines(p, outputs)
	case format.CombineTabular:
		return Tabular(outputs), nil
	default:
		return strings.Join(outputs, "\n\n"), nil
	}
}

// Tabular keeps the first line of the first output as the header and every
// line after the first of each output as data. A header repeated later in an
// output body is kept as data.
func Tabular(outputs []string) string {
	if len(outputs) == 0 {
		return ""
	}
	header, _, _ := strings.Cut(outputs[0], "\n")
	var rows []string
	for _, out := range outputs {
		lines := strings.Split(out, "\n")
		rows = append(rows, lines[1:]...)
	}
	return header + "\n" + strings.Join(rows, "\n")
}

// JSONLines keeps every trimmed line that parses as JSON.
func JSONLines(outputs []string) (string, int) {
	var kept []string
	dropped := 0
	for _, out := range outputs {
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if json.Valid([]byte(line)) {
				kept = append(kept, line)
			} else if line != "" {
				dropped++
			}
		}
	}
	return strings.Join(kept, "\n"), dropped
}

func (c *Combiner) jsonLines(p format.Policy, outputs []string) (string, error) {
	if !c.strict {
		s, dropped := JSONLines(outputs)
		if dropped > 0 {
			c.logger.Warn("combine.jsonl.dropped_lines", "format", p.Format, "dropped", dropped)
		}
		return s, nil
	}

	schema, err := c.schemaFor(p)
	if err != nil {
		return "", err
	}
	var kept []string
	for fi, out := range outputs {
		for li, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !json.Valid([]byte(line)) {
				return "", common.ConversionFailure(fmt.Sprintf("malformed JSON on line %d of chunk %d", li+1, fi+1), nil)
			}
			if schema != nil {
				if err := llm.ValidateJSON(schema, []byte(line)); err != nil {
					return "", common.ConversionFailure(fmt.Sprintf("record on line %d of chunk %d does not match schema", li+1, fi+1), err)
				}
			}
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), nil
}

func (c *Combiner) schemaFor(p format.Policy) (*jsonschema.Schema, error) {
	if p.Schema == nil {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.schemas[p.Format]; ok {
		return s, nil
	}
	s, err := llm.CompileSchema(p.Schema)
	if err != nil {
		return nil, common.WrapError(err, "compile record schema")
	}
	c.schemas[p.Format] = s
	return s, nil
}
