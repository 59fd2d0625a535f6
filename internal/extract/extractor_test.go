package extract

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/dataset-generator/constants"
	"github.com/joseph-ayodele/dataset-generator/internal/common"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestExtractor_Text(t *testing.T) {
	e := NewExtractor(nil)
	ctx := context.Background()

	t.Run("Should return plain text verbatim", func(t *testing.T) {
		p := writeFile(t, "notes.txt", []byte("Q: What is X? A: X is Y.\n"))
		doc, err := e.Extract(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "Q: What is X? A: X is Y.\n", doc.Text)
		assert.Equal(t, "notes", doc.Stem)
		assert.Equal(t, "notes.txt", doc.Name)
		assert.Equal(t, p, doc.Path)
		assert.Equal(t, constants.SourceText, doc.Kind)
	})

	t.Run("Should treat unknown extensions as text", func(t *testing.T) {
		doc, err := e.ExtractBytes(ctx, "README", []byte("héllo"))
		require.NoError(t, err)
		assert.Equal(t, "héllo", doc.Text)
		assert.Equal(t, "README", doc.Stem)
	})

	t.Run("Should accept empty text", func(t *testing.T) {
		doc, err := e.ExtractBytes(ctx, "empty.txt", nil)
		require.NoError(t, err)
		assert.Empty(t, doc.Text)
	})

	t.Run("Should reject binary content", func(t *testing.T) {
		png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")
		_, err := e.ExtractBytes(ctx, "image.txt", png)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrExtraction))
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, common.CodeUnsupportedContent, appErr.Code)
	})

	t.Run("Should accept prose that starts like a binary signature", func(t *testing.T) {
		for _, text := range []string{
			"ID3 tags are metadata blocks in mp3 files.",
			"MZ stands for Mark Zbikowski.",
			"BZh is the bzip2 magic.",
			"GIF89a was released in 1989.",
		} {
			doc, err := e.ExtractBytes(ctx, "note.txt", []byte(text))
			require.NoError(t, err, text)
			assert.Equal(t, text, doc.Text)
		}
	})

	t.Run("Should reject text with NUL bytes", func(t *testing.T) {
		_, err := e.ExtractBytes(ctx, "dump.txt", []byte("abc\x00def"))
		assert.ErrorIs(t, err, common.ErrExtraction)
	})

	t.Run("Should fail on a missing file", func(t *testing.T) {
		doc, err := e.Extract(ctx, filepath.Join(t.TempDir(), "missing.txt"))
		assert.ErrorIs(t, err, common.ErrExtraction)
		assert.Equal(t, "missing.txt", doc.Name)
	})

	t.Run("Should stop on a cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := e.ExtractBytes(cctx, "a.txt", []byte("a"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExtractor_JSON(t *testing.T) {
	e := NewExtractor(nil)
	ctx := context.Background()

	t.Run("Should re-indent with two spaces", func(t *testing.T) {
		doc, err := e.ExtractBytes(ctx, "data.json", []byte(`{"b":1,"a":[1,2]}`+"\n"))
		require.NoError(t, err)
		assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": [\n    1,\n    2\n  ]\n}", doc.Text)
		assert.Equal(t, constants.SourceJSON, doc.Kind)
	})

	t.Run("Should reject malformed JSON", func(t *testing.T) {
		_, err := e.ExtractBytes(ctx, "bad.json", []byte(`{"a":`))
		assert.ErrorIs(t, err, common.ErrExtraction)
	})
}

func TestExtractor_CSV(t *testing.T) {
	e := NewExtractor(nil)
	ctx := context.Background()

	t.Run("Should render rows and columns", func(t *testing.T) {
		doc, err := e.ExtractBytes(ctx, "people.csv", []byte("name,age\nann,31\nbob,42\n"))
		require.NoError(t, err)
		assert.Equal(t, 2, doc.Rows)
		assert.Contains(t, doc.Text, "name")
		assert.Contains(t, doc.Text, "ann")
		assert.Contains(t, doc.Text, "42")
		assert.Contains(t, doc.Text, "|")
	})

	t.Run("Should tolerate ragged rows", func(t *testing.T) {
		doc, err := e.ExtractBytes(ctx, "ragged.csv", []byte("a,b\n1\n2,3,4\n"))
		require.NoError(t, err)
		assert.Equal(t, 2, doc.Rows)
		assert.Contains(t, doc.Text, "4")
	})

	t.Run("Should return empty text for an empty file", func(t *testing.T) {
		doc, err := e.ExtractBytes(ctx, "empty.csv", nil)
		require.NoError(t, err)
		assert.Empty(t, doc.Text)
	})
}

func TestExtractor_XLSX(t *testing.T) {
	e := NewExtractor(nil)
	ctx := context.Background()

	t.Run("Should render the first non-empty sheet", func(t *testing.T) {
		f := excelize.NewFile()
		_, err := f.NewSheet("Data")
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Data", "A1", &[]any{"city", "pop"}))
		require.NoError(t, f.SetSheetRow("Data", "A2", &[]any{"Lagos", 15000000}))
		var buf bytes.Buffer
		require.NoError(t, f.Write(&buf))
		require.NoError(t, f.Close())

		doc, err := e.ExtractBytes(ctx, "cities.xlsx", buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, 1, doc.Rows)
		assert.Contains(t, doc.Text, "Lagos")
		assert.Contains(t, doc.Warnings, `used sheet "Data"`)
	})

	t.Run("Should fail on a corrupt workbook", func(t *testing.T) {
		_, err := e.ExtractBytes(ctx, "broken.xlsx", []byte("not a zip"))
		assert.ErrorIs(t, err, common.ErrExtraction)
	})
}

func TestExtractor_PDF(t *testing.T) {
	e := NewExtractor(nil)

	t.Run("Should fail on a corrupt pdf", func(t *testing.T) {
		_, err := e.ExtractBytes(context.Background(), "broken.pdf", []byte("%PDF-1.4 garbage"))
		assert.ErrorIs(t, err, common.ErrExtraction)
	})
}
