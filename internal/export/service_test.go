package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestService_RowsToXLSX(t *testing.T) {
	s := NewService(nil)

	t.Run("Should write every row into the dataset sheet", func(t *testing.T) {
		rows := [][]string{{"name", "age"}, {"ann", "31"}, {"bob", "42"}}
		b, err := s.RowsToXLSX(context.Background(), rows)
		require.NoError(t, err)

		f, err := excelize.OpenReader(bytes.NewReader(b))
		require.NoError(t, err)
		defer func() { _ = f.Close() }()

		got, err := f.GetRows(sheetName)
		require.NoError(t, err)
		assert.Equal(t, rows, got)
	})

	t.Run("Should build an empty workbook for no rows", func(t *testing.T) {
		b, err := s.RowsToXLSX(context.Background(), nil)
		require.NoError(t, err)
		assert.NotEmpty(t, b)
	})

	t.Run("Should honor a cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.RowsToXLSX(ctx, [][]string{{"a"}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestService_WriteCompanion(t *testing.T) {
	s := NewService(nil)
	csvPath := filepath.Join(t.TempDir(), "table_abc123.csv")

	path, err := s.WriteCompanion(context.Background(), csvPath, [][]string{{"h"}, {"v"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(csvPath), "table_abc123.xlsx"), path)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 10, clamp(3, 10, 60))
	assert.Equal(t, 60, clamp(99, 10, 60))
	assert.Equal(t, 25, clamp(25, 10, 60))
}
