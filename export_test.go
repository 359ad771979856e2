package csvsql

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() StatementResult {
	return StatementResult{
		Header: []string{"id", "name", "note"},
		Rows: [][]string{
			{"1", "alice", "a,b"},
			{"2", "bob", `say "hi"`},
			{"3", "carol", ""},
		},
	}
}

func TestExport_Delimited(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts ExportOptions
		want string
	}{
		{
			name: "necessary quoting",
			opts: NewExportOptions(),
			want: "id,name,note\n1,alice,\"a,b\"\n2,bob,\"say \"\"hi\"\"\"\n3,carol,\n",
		},
		{
			name: "always",
			opts: NewExportOptions().WithQuoteStyle(QuoteAlways),
			want: "\"id\",\"name\",\"note\"\n\"1\",\"alice\",\"a,b\"\n\"2\",\"bob\",\"say \"\"hi\"\"\"\n\"3\",\"carol\",\"\"\n",
		},
		{
			name: "non-numeric",
			opts: NewExportOptions().WithQuoteStyle(QuoteNonNumeric),
			want: "\"id\",\"name\",\"note\"\n1,\"alice\",\"a,b\"\n2,\"bob\",\"say \"\"hi\"\"\"\n3,\"carol\",\"\"\n",
		},
		{
			name: "never",
			opts: NewExportOptions().WithQuoteStyle(QuoteNever),
			want: "id,name,note\n1,alice,a,b\n2,bob,say \"hi\"\n3,carol,\n",
		},
		{
			name: "custom delimiter without header",
			opts: NewExportOptions().WithDelimiter(';').WithoutHeader(),
			want: "1;alice;a,b\n2;bob;\"say \"\"hi\"\"\"\n3;carol;\n",
		},
		{
			name: "tsv ignores the delimiter",
			opts: NewExportOptions().WithFormat(FileTypeTSV).WithDelimiter(';'),
			want: "id\tname\tnote\n1\talice\ta,b\n2\tbob\t\"say \"\"hi\"\"\"\n3\tcarol\t\n",
		},
		{
			name: "ltsv",
			opts: NewExportOptions().WithFormat(FileTypeLTSV),
			want: "id:1\tname:alice\tnote:a,b\nid:2\tname:bob\tnote:say \"hi\"\nid:3\tname:carol\tnote:\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, Export(context.Background(), sampleResult(), WriterSink(&buf, tt.opts)))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestExport_EmptyResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Export(context.Background(), StatementResult{Header: []string{"a"}}, WriterSink(&buf, NewExportOptions()))
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.Empty(t, buf.String())
}

func TestWriteResult_HeaderOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteResult(context.Background(), StatementResult{Header: []string{"a", "b"}}, WriterSink(&buf, NewExportOptions())))
	assert.Equal(t, "a,b\n", buf.String())
}

func TestExport_Encoding(t *testing.T) {
	t.Parallel()

	result := StatementResult{Header: []string{"名前"}, Rows: [][]string{{"太郎"}}}

	var buf bytes.Buffer
	require.NoError(t, Export(context.Background(), result, WriterSink(&buf, NewExportOptions().WithEncoding("shift_jis"))))
	assert.NotEqual(t, "名前\n太郎\n", buf.String())

	src, err := ReadSourceFrom(context.Background(), "sjis", &buf, FileTypeCSV, ReadOptions{Encoding: "shift_jis"})
	require.NoError(t, err)
	assert.Equal(t, []string{"名前"}, src.Headers)
	assert.Equal(t, "太郎", *src.Rows[0][0])
}

func TestExport_UnknownEncoding(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Export(context.Background(), sampleResult(), WriterSink(&buf, NewExportOptions().WithEncoding("no-such-encoding")))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

// TestFileSink_RoundTrip writes every format and compression through a file
// and reads it back.
func TestFileSink_RoundTrip(t *testing.T) {
	t.Parallel()

	files := []string{
		"out.csv",
		"out.tsv",
		"out.ltsv",
		"out.xlsx",
		"out.parquet",
		"out.csv.gz",
		"out.tsv.xz",
		"out.ltsv.zst",
		"out.parquet.gz",
		"out.xlsx.zst",
	}

	for _, name := range files {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Export(ctx, sampleResult(), FileSink(path, NewExportOptions())))

			src, err := ReadSource(ctx, path, ReadOptions{})
			require.NoError(t, err)
			assert.Equal(t, trimCompressionExtension(name), src.Name)
			assert.Equal(t, []string{"id", "name", "note"}, src.Headers)
			require.Len(t, src.Rows, 3)

			got := make([][]string, len(src.Rows))
			for i, row := range src.Rows {
				for _, cell := range row {
					got[i] = append(got[i], *cell)
				}
			}
			assert.Equal(t, sampleResult().Rows, got)
		})
	}
}

func TestFileSink_ExtensionOverridesOptions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.tsv")
	require.NoError(t, Export(context.Background(), sampleResult(), FileSink(path, NewExportOptions().WithFormat(FileTypeLTSV))))

	data, err := os.ReadFile(path) //nolint:gosec
	require.NoError(t, err)
	assert.Contains(t, string(data), "id\tname\tnote\n")
}

func TestFileSink_UnwritableCompression(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv.bz2")
	err := Export(context.Background(), sampleResult(), FileSink(path, NewExportOptions()))
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestParseQuoteStyle(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]QuoteStyle{
		"":            QuoteNecessary,
		"necessary":   QuoteNecessary,
		"Always":      QuoteAlways,
		"non-numeric": QuoteNonNumeric,
		"never":       QuoteNever,
	} {
		got, err := ParseQuoteStyle(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
		if name != "" && name != "Always" {
			assert.Equal(t, name, got.String())
		}
	}

	_, err := ParseQuoteStyle("sometimes")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExportOptions_FileExtension(t *testing.T) {
	t.Parallel()

	opts := NewExportOptions().WithFormat(FileTypeParquet).WithCompression(CompressionZSTD)
	assert.Equal(t, ".parquet.zst", opts.FileExtension())
	assert.Equal(t, ".csv", NewExportOptions().FileExtension())
}
