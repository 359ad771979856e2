package csvsql

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// values flattens source rows for comparison.
func values(src *TabularSource) [][]string {
	out := make([][]string, len(src.Rows))
	for i, row := range src.Rows {
		out[i] = []string{}
		for _, cell := range row {
			if cell == nil {
				out[i] = append(out[i], "<nil>")
				continue
			}
			out[i] = append(out[i], *cell)
		}
	}
	return out
}

func TestReadSourceFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		fileType    FileType
		opts        ReadOptions
		wantHeaders []string
		wantRows    [][]string
	}{
		{
			name:        "csv",
			input:       "id,name\n1,alice\n2,\"bob, jr\"\n",
			fileType:    FileTypeCSV,
			wantHeaders: []string{"id", "name"},
			wantRows:    [][]string{{"1", "alice"}, {"2", "bob, jr"}},
		},
		{
			name:        "custom delimiter",
			input:       "id;name\n1;alice\n",
			fileType:    FileTypeCSV,
			opts:        ReadOptions{Delimiter: ';'},
			wantHeaders: []string{"id", "name"},
			wantRows:    [][]string{{"1", "alice"}},
		},
		{
			name:        "tsv forces tab",
			input:       "id\tname\n1\talice\n",
			fileType:    FileTypeTSV,
			opts:        ReadOptions{Delimiter: ';'},
			wantHeaders: []string{"id", "name"},
			wantRows:    [][]string{{"1", "alice"}},
		},
		{
			name:        "no header",
			input:       "1,alice\n2,bob\n",
			fileType:    FileTypeCSV,
			opts:        ReadOptions{NoHeader: true},
			wantHeaders: []string{"c1", "c2"},
			wantRows:    [][]string{{"1", "alice"}, {"2", "bob"}},
		},
		{
			name:        "flexible pads short rows",
			input:       "a,b,c\n1\n1,2,3\n",
			fileType:    FileTypeCSV,
			opts:        ReadOptions{Flexible: true},
			wantHeaders: []string{"a", "b", "c"},
			wantRows:    [][]string{{"1", "", ""}, {"1", "2", "3"}},
		},
		{
			name:        "no header flexible takes the widest record",
			input:       "1\n1,2,3\n",
			fileType:    FileTypeCSV,
			opts:        ReadOptions{NoHeader: true, Flexible: true},
			wantHeaders: []string{"c1", "c2", "c3"},
			wantRows:    [][]string{{"1", "", ""}, {"1", "2", "3"}},
		},
		{
			name:        "trim",
			input:       " id , name \n 1 , alice \n",
			fileType:    FileTypeCSV,
			opts:        ReadOptions{Trim: true},
			wantHeaders: []string{"id", "name"},
			wantRows:    [][]string{{"1", "alice"}},
		},
		{
			name:        "comment",
			input:       "id,name\n# skipped\n1,alice\n",
			fileType:    FileTypeCSV,
			opts:        ReadOptions{Comment: '#'},
			wantHeaders: []string{"id", "name"},
			wantRows:    [][]string{{"1", "alice"}},
		},
		{
			name:        "lazy quotes",
			input:       "id,name\n1,al\"ice\n",
			fileType:    FileTypeCSV,
			opts:        ReadOptions{LazyQuotes: true},
			wantHeaders: []string{"id", "name"},
			wantRows:    [][]string{{"1", "al\"ice"}},
		},
		{
			name:        "header only",
			input:       "id,name\n",
			fileType:    FileTypeCSV,
			wantHeaders: []string{"id", "name"},
			wantRows:    [][]string{},
		},
		{
			name:        "ltsv labels in order of appearance",
			input:       "id:1\tname:alice\n\nname:bob\tage:30\n",
			fileType:    FileTypeLTSV,
			wantHeaders: []string{"id", "name", "age"},
			wantRows:    [][]string{{"1", "alice", ""}, {"", "bob", "30"}},
		},
		{
			name:        "ltsv value containing a colon",
			input:       "time:12:30\n",
			fileType:    FileTypeLTSV,
			wantHeaders: []string{"time"},
			wantRows:    [][]string{{"12:30"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src, err := ReadSourceFrom(context.Background(), "t", strings.NewReader(tt.input), tt.fileType, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, "t", src.Name)
			assert.Equal(t, tt.wantHeaders, src.Headers)
			assert.Equal(t, tt.wantRows, values(src))
		})
	}
}

func TestReadSourceFrom_Errors(t *testing.T) {
	t.Parallel()

	t.Run("uneven rows without flexible", func(t *testing.T) {
		t.Parallel()

		_, err := ReadSourceFrom(context.Background(), "t", strings.NewReader("a,b\n1\n"), FileTypeCSV, ReadOptions{})
		assert.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		for _, ft := range []FileType{FileTypeCSV, FileTypeTSV, FileTypeLTSV, FileTypeParquet} {
			_, err := ReadSourceFrom(context.Background(), "t", strings.NewReader(""), ft, ReadOptions{})
			assert.ErrorIs(t, err, ErrEmptyData, ft.String())
		}
	})

	t.Run("unknown encoding", func(t *testing.T) {
		t.Parallel()

		_, err := ReadSourceFrom(context.Background(), "t", strings.NewReader("a\n1\n"), FileTypeCSV, ReadOptions{Encoding: "no-such-encoding"})
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("invalid workbook", func(t *testing.T) {
		t.Parallel()

		_, err := ReadSourceFrom(context.Background(), "t", strings.NewReader("not a zip"), FileTypeXLSX, ReadOptions{})
		assert.Error(t, err)
	})
}

func TestReadSource(t *testing.T) {
	t.Parallel()

	t.Run("table name keeps the format extension", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "People.csv")
		require.NoError(t, os.WriteFile(path, []byte("id\n1\n"), 0o600))

		src, err := ReadSource(context.Background(), path, ReadOptions{})
		require.NoError(t, err)
		assert.Equal(t, "People.csv", src.Name)
	})

	t.Run("gzip input", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write([]byte("id\tname\n1\talice\n"))
		require.NoError(t, err)
		require.NoError(t, gz.Close())

		path := filepath.Join(t.TempDir(), "people.tsv.gz")
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

		src, err := ReadSource(context.Background(), path, ReadOptions{})
		require.NoError(t, err)
		assert.Equal(t, "people.tsv", src.Name)
		assert.Equal(t, []string{"id", "name"}, src.Headers)
		assert.Equal(t, [][]string{{"1", "alice"}}, values(src))
	})

	t.Run("unknown extension is delimited text", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "people.txt")
		require.NoError(t, os.WriteFile(path, []byte("id|name\n1|alice\n"), 0o600))

		src, err := ReadSource(context.Background(), path, ReadOptions{Delimiter: '|'})
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"1", "alice"}}, values(src))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := ReadSource(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), ReadOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "missing.csv")
	})

	t.Run("corrupt gzip", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.csv.gz")
		require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

		_, err := ReadSource(context.Background(), path, ReadOptions{})
		assert.Error(t, err)
	})
}

func TestPadRows(t *testing.T) {
	t.Parallel()

	rows := padRows([][]*string{cells("1"), {nil, nil}}, 3)
	src := &TabularSource{Rows: rows}
	assert.Equal(t, [][]string{{"1", "", ""}, {"", "", ""}}, values(src))
}
