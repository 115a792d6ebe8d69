package parser

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-pipeline/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readAll(t *testing.T, r *FileReader) []*models.WeatherRecord {
	t.Helper()
	var records []*models.WeatherRecord
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return records
		}
		require.NoError(t, err)
		records = append(records, rec)
	}
}

func TestFileReader(t *testing.T) {
	dir := t.TempDir()

	t.Run("normalizes valid rows", func(t *testing.T) {
		path := writeFile(t, dir, "TEST001.txt",
			"20200101\t200\t100\t50\n20200102\t220\t120\t0\n")

		r, err := Open(path)
		require.NoError(t, err)
		defer r.Close()

		assert.Equal(t, "TEST001", r.Station())

		records := readAll(t, r)
		require.Len(t, records, 2)

		first := records[0]
		assert.Equal(t, "TEST001", first.StationID)
		assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), first.Date)
		require.NotNil(t, first.MaxTemp)
		assert.Equal(t, 20.0, *first.MaxTemp)
		require.NotNil(t, first.MinTemp)
		assert.Equal(t, 10.0, *first.MinTemp)
		require.NotNil(t, first.Precipitation)
		assert.Equal(t, 5.0, *first.Precipitation)

		second := records[1]
		assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), second.Date)
		require.NotNil(t, second.Precipitation)
		assert.Equal(t, 0.0, *second.Precipitation)
	})

	t.Run("maps sentinel values to nil", func(t *testing.T) {
		path := writeFile(t, dir, "TEST002.txt", "20200103\t-9999\t150\t25\n")

		r, err := Open(path)
		require.NoError(t, err)
		defer r.Close()

		records := readAll(t, r)
		require.Len(t, records, 1)

		rec := records[0]
		assert.Nil(t, rec.MaxTemp)
		require.NotNil(t, rec.MinTemp)
		assert.Equal(t, 15.0, *rec.MinTemp)
		require.NotNil(t, rec.Precipitation)
		assert.Equal(t, 2.5, *rec.Precipitation)
	})

	t.Run("empty file yields no records", func(t *testing.T) {
		path := writeFile(t, dir, "EMPTY01.txt", "")

		r, err := Open(path)
		require.NoError(t, err)
		defer r.Close()

		assert.Empty(t, readAll(t, r))
		assert.Zero(t, r.Dropped())
	})

	t.Run("drops rows with unparseable dates", func(t *testing.T) {
		path := writeFile(t, dir, "TEST003.txt",
			"20200101\t200\t100\t50\nnotadate\t210\t110\t60\n20200103\t220\t120\t70\n")

		r, err := Open(path)
		require.NoError(t, err)
		defer r.Close()

		records := readAll(t, r)
		require.Len(t, records, 2)
		assert.Equal(t, 1, r.Dropped())
		assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
		assert.Equal(t, time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC), records[1].Date)
	})

	t.Run("wrong column count is a parse error", func(t *testing.T) {
		path := writeFile(t, dir, "TEST004.txt",
			"20200101\t200\t100\t50\n20200102\t210\t110\n")

		r, err := Open(path)
		require.NoError(t, err)
		defer r.Close()

		rec, err := r.Next()
		require.NoError(t, err)
		assert.NotNil(t, rec)

		_, err = r.Next()
		var parseErr *models.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, path, parseErr.File)
		assert.Equal(t, 2, parseErr.Line)
	})

	t.Run("non-integer measurement is a parse error", func(t *testing.T) {
		path := writeFile(t, dir, "TEST005.txt", "20200101\tabc\t100\t50\n")

		r, err := Open(path)
		require.NoError(t, err)
		defer r.Close()

		_, err = r.Next()
		var parseErr *models.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, 1, parseErr.Line)
	})

	t.Run("skips blank lines", func(t *testing.T) {
		path := writeFile(t, dir, "TEST006.txt",
			"20200101\t200\t100\t50\n\n20200102\t220\t120\t0\n")

		r, err := Open(path)
		require.NoError(t, err)
		defer r.Close()

		assert.Len(t, readAll(t, r), 2)
	})

	t.Run("station id strips the extension only", func(t *testing.T) {
		path := writeFile(t, dir, "USC00110072.txt", "")

		r, err := Open(path)
		require.NoError(t, err)
		defer r.Close()

		assert.Equal(t, "USC00110072", r.Station())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "NOPE.txt"))
		require.Error(t, err)
	})
}
