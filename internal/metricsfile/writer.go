package metricsfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// FileName is the fixed metrics file name inside a log directory.
const FileName = "metrics.csv"

// StepColumn is the reserved column every record carries.
const StepColumn = "step"

// Error kinds surfaced by Save. Both wrap the underlying I/O error; the
// buffer is never cleared on failure, so a retrying caller loses nothing.
var (
	ErrRewrite = errors.New("metrics file rewrite failed")
	ErrAppend  = errors.New("metrics file append failed")
)

// Record is one logical row: metric key to already-stringified value.
type Record map[string]string

// Writer owns the in-memory record buffer, the evolving column set and the
// on-disk CSV file for one log directory. It assumes a single writer per
// directory; file handles are scoped per Save so other processes can inspect
// the file between flushes.
type Writer struct {
	path    string
	columns []string            // every key ever seen, first-seen order
	colSet  map[string]struct{} // membership index over columns
	onDisk  int                 // leading columns already in the file header; -1 when no file
	buffer  []Record
}

// Open prepares a Writer for logDir. If a metrics file already exists there,
// its header row becomes the initial column set and existing rows are treated
// as persisted; they are never re-read into the buffer.
func Open(logDir string) (*Writer, error) {
	w := &Writer{
		path:   filepath.Join(logDir, FileName),
		colSet: map[string]struct{}{},
		onDisk: -1,
	}
	header, err := readHeader(w.path)
	if err != nil {
		return nil, err
	}
	if header != nil {
		w.columns = header
		for _, c := range header {
			w.colSet[c] = struct{}{}
		}
		w.onDisk = len(header)
	}
	return w, nil
}

// readHeader returns the header row of an existing metrics file, or nil when
// the file is absent or empty.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	header, err := csv.NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse header of %s: %w", path, err)
	}
	return header, nil
}

// Path returns the metrics file path.
func (w *Writer) Path() string { return w.path }

// Columns returns the current column set in header order.
func (w *Writer) Columns() []string {
	out := make([]string, len(w.columns))
	copy(out, w.columns)
	return out
}

// Buffered returns the number of records awaiting flush.
func (w *Writer) Buffered() int { return len(w.buffer) }

// Log appends rec to the buffer and unions its keys into the column set.
// No disk I/O happens here.
func (w *Writer) Log(rec Record) {
	var added []string
	for k := range rec {
		if _, ok := w.colSet[k]; ok {
			continue
		}
		w.colSet[k] = struct{}{}
		added = append(added, k)
	}
	// Keys introduced by the same record have no inherent order; fix one.
	// The step column leads a fresh file, everything else is alphabetical.
	sort.Slice(added, func(i, j int) bool {
		if added[i] == StepColumn {
			return true
		}
		if added[j] == StepColumn {
			return false
		}
		return added[i] < added[j]
	})
	w.columns = append(w.columns, added...)
	w.buffer = append(w.buffer, rec)
}

// Save flushes buffered records. When the column set outgrew the on-disk
// header the whole file is rewritten with the widened header and every prior
// row padded; otherwise rows are appended in place. A save with nothing
// buffered and an up-to-date header is a no-op. The buffer is cleared only
// after the write succeeded.
func (w *Writer) Save() error {
	fileExists := w.onDisk >= 0
	upToDate := !fileExists || w.onDisk == len(w.columns)
	if len(w.buffer) == 0 && upToDate {
		return nil
	}

	var err error
	switch {
	case fileExists && w.onDisk < len(w.columns):
		err = w.rewrite()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRewrite, err)
		}
	case fileExists:
		err = w.append()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAppend, err)
		}
	default:
		err = w.create()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAppend, err)
		}
	}
	w.buffer = nil
	w.onDisk = len(w.columns)
	return nil
}

// create writes a fresh file: header row, then every buffered record.
func (w *Writer) create() error {
	f, err := os.Create(w.path)
	if err != nil {
		return err
	}
	if err := w.writeRows(f, nil); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// append adds buffered rows to the existing file without touching the header.
func (w *Writer) append() error {
	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	for _, rec := range w.buffer {
		if err := cw.Write(w.renderRow(rec)); err != nil {
			f.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// rewrite re-emits the whole file under the widened header: prior rows are
// read back and padded with empty cells, buffered rows follow. The new
// content goes to a temp file in the same directory and replaces the target
// by rename, so a crash mid-rewrite leaves the previous file intact.
func (w *Writer) rewrite() error {
	prior, err := w.readRows()
	if err != nil {
		return err
	}
	tmp := w.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := w.writeRows(f, prior); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, w.path)
}

// readRows returns the persisted data rows (header excluded), each padded to
// the current column count.
func (w *Writer) readRows() ([][]string, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read back %s: %w", w.path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		padded := make([]string, len(w.columns))
		copy(padded, row)
		out = append(out, padded)
	}
	return out, nil
}

// writeRows emits the header, any prior rows, then the buffered records.
func (w *Writer) writeRows(f *os.File, prior [][]string) error {
	cw := csv.NewWriter(f)
	if err := cw.Write(w.columns); err != nil {
		return err
	}
	for _, row := range prior {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	for _, rec := range w.buffer {
		if err := cw.Write(w.renderRow(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// renderRow lays rec out in header column order, absent keys as empty cells.
// The append path only runs when the header already covers every column, so
// the full column set is always the right width.
func (w *Writer) renderRow(rec Record) []string {
	row := make([]string, len(w.columns))
	for i, col := range w.columns {
		row[i] = rec[col]
	}
	return row
}
