// Package serialize writes combined payloads to disk using each format's
// on-disk convention.
package serialize

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/dataset-generator/internal/common"
	"github.com/joseph-ayodele/dataset-generator/internal/format"
)

const maxNameAttempts = 5

// Output describes one written file.
type Output struct {
	Name  string // base name, e.g. notes_1a2b3c.jsonl
	Path  string
	Bytes int
	// Rows is the parsed table for CSV outputs, nil otherwise.
	Rows [][]string
}

// Writer persists payloads into one directory.
type Writer struct {
	dir    string
	logger *slog.Logger
	suffix func() string
}

func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, logger: logger, suffix: randomSuffix}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// EnsureDir creates the output directory if needed.
func (w *Writer) EnsureDir() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return common.SerializationError("create output directory", err)
	}
	return nil
}

// Save encodes payload for p and writes it as {stem}_{6 hex}{ext}.
func (w *Writer) Save(p format.Policy, stem, payload string) (Output, error) {
	data, rows, err := Encode(p, payload)
	if err != nil {
		return Output{}, common.SerializationError("encode "+p.Serialize.String(), err)
	}
	if err := w.EnsureDir(); err != nil {
		return Output{}, err
	}

	tmp, err := os.CreateTemp(w.dir, ".partial-*")
	if err != nil {
		return Output{}, common.SerializationError("create temp file", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return Output{}, common.SerializationError("write output", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return Output{}, common.SerializationError("sync output", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return Output{}, common.SerializationError("close output", err)
	}

	name, err := w.freeName(stem, p.Extension)
	if err != nil {
		cleanup()
		return Output{}, err
	}
	final := filepath.Join(w.dir, name)
	if err := os.Rename(tmpName, final); err != nil {
		cleanup()
		return Output{}, common.SerializationError("rename output", err)
	}

	w.logger.Info("serialize.saved",
		"file", name,
		"format", p.Format,
		"strategy", p.Serialize.String(),
		"bytes", len(data),
	)
	return Output{Name: name, Path: final, Bytes: len(data), Rows: rows}, nil
}

func (w *Writer) freeName(stem, ext string) (string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		name := stem + "_" + w.suffix() + ext
		_, err := os.Stat(filepath.Join(w.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", common.SerializationError("stat output", err)
		}
	}
	return "", common.SerializationError(fmt.Sprintf("no free output name for %q", stem), fs.ErrExist)
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
}

// Encode renders payload into file bytes for the policy's serializer.
func Encode(p format.Policy, payload string) ([]byte, [][]string, error) {
	switch p.Serialize {
	case format.SerializeCSV:
		rows := SplitRows(payload)
		b, err := EncodeCSV(rows)
		return b, rows, err
	case format.SerializeJSONL:
		b, err := EncodeJSONL(payload)
		return b, nil, err
	default:
		return []byte(payload), nil, nil
	}
}

// SplitRows trims every non-blank line and splits it on commas.
func SplitRows(payload string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, ","))
	}
	return rows
}

// EncodeCSV writes rows with standard CSV quoting and CRLF line endings.
func EncodeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.UseCRLF = true
	if err := cw.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJSONL emits one JSON value per non-blank line. Valid JSON is
// compacted; anything else is wrapped as {"text": line}.
func EncodeJSONL(payload string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, line := range strings.Split(payload, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if json.Valid([]byte(line)) {
			if err := json.Compact(&buf, []byte(line)); err != nil {
				return nil, err
			}
			buf.WriteByte('\n')
			continue
		}
		if err := enc.Encode(map[string]string{"text": line}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
