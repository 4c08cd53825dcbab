package metricsfile

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) (header []string, rows [][]string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	all, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	return all[0], all[1:]
}

func cell(t *testing.T, header []string, row []string, col string) string {
	t.Helper()
	for i, h := range header {
		if h == col {
			return row[i]
		}
	}
	t.Fatalf("column %q not in header %v", col, header)
	return ""
}

func TestCreateWritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)

	w.Log(Record{"step": "0", "float": "0.3", "int": "1"})
	require.NoError(t, w.Save())

	header, rows := readFile(t, w.Path())
	assert.ElementsMatch(t, []string{"step", "float", "int"}, header)
	assert.Equal(t, "step", header[0])
	require.Len(t, rows, 1)
	assert.Equal(t, "0.3", cell(t, header, rows[0], "float"))
}

func TestLogBuffersWithoutIO(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)

	w.Log(Record{"step": "0", "a": "1"})
	assert.Equal(t, 1, w.Buffered())
	_, statErr := os.Stat(w.Path())
	assert.True(t, os.IsNotExist(statErr), "Log must not touch the disk")
}

func TestAppendWithoutNewColumnsKeepsHeader(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)

	w.Log(Record{"step": "0", "a": "1", "b": "2"})
	require.NoError(t, w.Save())
	before, err := os.ReadFile(w.Path())
	require.NoError(t, err)

	w.Log(Record{"step": "1", "a": "3", "b": "4"})
	require.NoError(t, w.Save())

	after, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(after), string(before)), "append must not rewrite prior bytes")

	_, rows := readFile(t, w.Path())
	assert.Len(t, rows, 2)
}

func TestColumnGrowthRewritesWithoutTruncation(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)

	w.Log(Record{"step": "0", "a": "1", "b": "2"})
	require.NoError(t, w.Save())
	w.Log(Record{"step": "0", "a": "11", "b": "22", "c": "33"})
	require.NoError(t, w.Save())
	w.Log(Record{"step": "0", "a": "111", "c": "333"})
	require.NoError(t, w.Save())

	header, rows := readFile(t, w.Path())
	assert.ElementsMatch(t, []string{"step", "a", "b", "c"}, header)
	require.Len(t, rows, 3)
	assert.Equal(t, "", cell(t, header, rows[0], "c"))
	assert.Equal(t, "33", cell(t, header, rows[1], "c"))
	assert.Equal(t, "", cell(t, header, rows[2], "b"))
	assert.Equal(t, "111", cell(t, header, rows[2], "a"))
}

func TestReopenResumesExistingFile(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)
	w.Log(Record{"step": "0", "a": "1", "b": "2"})
	w.Log(Record{"step": "1", "a": "3", "b": "4"})
	require.NoError(t, w.Save())

	w2, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, w.Columns(), w2.Columns())
	assert.Zero(t, w2.Buffered(), "persisted rows must not be re-read into the buffer")

	w2.Log(Record{"step": "2", "a": "100", "b": "200"})
	require.NoError(t, w2.Save())

	_, rows := readFile(t, w2.Path())
	assert.Len(t, rows, 3)
}

func TestSaveIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)
	w.Log(Record{"step": "0", "a": "1"})
	require.NoError(t, w.Save())

	before, err := os.Stat(w.Path())
	require.NoError(t, err)
	content, err := os.ReadFile(w.Path())
	require.NoError(t, err)

	require.NoError(t, w.Save())

	after, err := os.Stat(w.Path())
	require.NoError(t, err)
	content2, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.Equal(t, content, content2)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestSaveEmptyWriterIsNoop(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, w.Save())
	_, statErr := os.Stat(w.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveClearsBufferOnlyOnSuccess(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission-based failure injection does not work as root")
	}
	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)
	w.Log(Record{"step": "0", "a": "1"})
	require.NoError(t, w.Save())
	assert.Zero(t, w.Buffered())

	// Make the file read-only so the append path fails.
	w.Log(Record{"step": "1", "a": "2"})
	require.NoError(t, os.Chmod(w.Path(), 0o444))
	t.Cleanup(func() { _ = os.Chmod(w.Path(), 0o644) })

	err = w.Save()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAppend)
	assert.Equal(t, 1, w.Buffered(), "failed save must keep the buffer")

	require.NoError(t, os.Chmod(w.Path(), 0o644))
	require.NoError(t, w.Save())
	_, rows := readFile(t, w.Path())
	assert.Len(t, rows, 2)
}

func TestOpenEmptyFileTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), nil, 0o644))

	w, err := Open(dir)
	require.NoError(t, err)
	assert.Empty(t, w.Columns())

	w.Log(Record{"step": "0", "a": "1"})
	require.NoError(t, w.Save())
	header, rows := readFile(t, w.Path())
	assert.ElementsMatch(t, []string{"step", "a"}, header)
	assert.Len(t, rows, 1)
}
