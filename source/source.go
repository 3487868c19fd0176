package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/sheetmap"
)

// Standard error values shared across the package
var (
	// ErrUnsupportedFormat indicates a file extension the loader does not handle
	ErrUnsupportedFormat = errors.New("source: unsupported file format")

	// ErrEmptyFile indicates a file with no header row
	ErrEmptyFile = errors.New("source: file has no header row")
)

// File format delimiters
const (
	// csvDelimiter is the delimiter for CSV files
	csvDelimiter = ','
	// tsvDelimiter is the delimiter for TSV files
	tsvDelimiter = '\t'
)

// FileType represents a supported spreadsheet format.
type FileType int

const (
	// FileTypeUnsupported marks an extension the loader does not handle
	FileTypeUnsupported FileType = iota
	// FileTypeCSV represents comma-separated values
	FileTypeCSV
	// FileTypeTSV represents tab-separated values
	FileTypeTSV
	// FileTypeXLSX represents Excel workbooks
	FileTypeXLSX
)

// Option configures a loader.
type Option func(*loader)

// WithSampleRows overrides how many data rows are retained as the
// inference sample. Rows beyond the sample still contribute to RowCount.
func WithSampleRows(n int) Option {
	return func(l *loader) {
		if n > 0 {
			l.sampleRows = n
		}
	}
}

type loader struct {
	sampleRows int
}

// Load reads a spreadsheet file into per-sheet snapshots. CSV and TSV
// files yield one snapshot named after the file; XLSX workbooks yield one
// snapshot per sheet. Compressed variants (.gz, .bz2, .xz, .zst) are
// decompressed transparently.
//
// Only a bounded sample of rows is retained on each snapshot; the engine
// never needs the full data set, which stays with the import layer.
func Load(ctx context.Context, path string, opts ...Option) ([]sheetmap.SheetSnapshot, error) {
	l := &loader{sampleRows: sheetmap.DefaultSampleRows}
	for _, opt := range opts {
		opt(l)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compression := detectCompression(path)
	base := path
	if compression != CompressionNone {
		base = strings.TrimSuffix(path, compression.Extension())
	}

	fileType := detectFileType(base)
	if fileType == FileTypeUnsupported {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader, closer, err := newDecompressingReader(f, compression)
	if err != nil {
		return nil, err
	}
	defer closer() //nolint:errcheck // decoder teardown on the read path

	switch fileType {
	case FileTypeCSV:
		snapshot, err := l.readDelimited(ctx, reader, sheetNameFromPath(base), csvDelimiter)
		if err != nil {
			return nil, err
		}
		return []sheetmap.SheetSnapshot{snapshot}, nil
	case FileTypeTSV:
		snapshot, err := l.readDelimited(ctx, reader, sheetNameFromPath(base), tsvDelimiter)
		if err != nil {
			return nil, err
		}
		return []sheetmap.SheetSnapshot{snapshot}, nil
	default:
		return l.readXLSX(ctx, reader)
	}
}

// detectFileType maps an uncompressed path to its format.
func detectFileType(path string) FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FileTypeCSV
	case ".tsv":
		return FileTypeTSV
	case ".xlsx":
		return FileTypeXLSX
	default:
		return FileTypeUnsupported
	}
}

// sheetNameFromPath derives the snapshot name for single-sheet formats.
func sheetNameFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// readDelimited streams a CSV or TSV file: the first row becomes the
// headers, the first sampleRows data rows become the sample, and every
// remaining row only increments the count.
func (l *loader) readDelimited(ctx context.Context, reader io.Reader, sheetName string, delimiter rune) (sheetmap.SheetSnapshot, error) {
	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.FieldsPerRecord = -1 // ragged rows are padded below

	headers, err := csvReader.Read()
	if err == io.EOF {
		return sheetmap.SheetSnapshot{}, fmt.Errorf("%w: %s", ErrEmptyFile, sheetName)
	}
	if err != nil {
		return sheetmap.SheetSnapshot{}, fmt.Errorf("source: failed to read header of %s: %w", sheetName, err)
	}

	snapshot := sheetmap.SheetSnapshot{
		SheetName: sheetName,
		Headers:   headers,
	}
	for {
		if err := ctx.Err(); err != nil {
			return sheetmap.SheetSnapshot{}, err
		}
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sheetmap.SheetSnapshot{}, fmt.Errorf("source: failed to read %s: %w", sheetName, err)
		}
		snapshot.RowCount++
		if len(snapshot.SampleData) < l.sampleRows {
			snapshot.SampleData = append(snapshot.SampleData, rowToSample(headers, row))
		}
	}
	return snapshot, nil
}

// readXLSX loads a workbook and produces one snapshot per sheet.
// excelize needs random access, so the stream is buffered in memory
// first; workbook inputs are expected to be modest in size.
func (l *loader) readXLSX(ctx context.Context, reader io.Reader) ([]sheetmap.SheetSnapshot, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("source: failed to read workbook: %w", err)
	}
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("source: failed to open workbook: %w", err)
	}
	defer func() {
		_ = workbook.Close() // Ignore close error
	}()

	sheetNames := workbook.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, errors.New("source: workbook has no sheets")
	}

	snapshots := make([]sheetmap.SheetSnapshot, 0, len(sheetNames))
	for _, sheetName := range sheetNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := workbook.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("source: failed to read sheet %s: %w", sheetName, err)
		}
		if len(rows) == 0 {
			continue // empty sheets carry nothing to map
		}

		headers := rows[0]
		snapshot := sheetmap.SheetSnapshot{
			SheetName: sheetName,
			Headers:   headers,
			RowCount:  len(rows) - 1,
		}
		for _, row := range rows[1:] {
			if len(snapshot.SampleData) == l.sampleRows {
				break
			}
			snapshot.SampleData = append(snapshot.SampleData, rowToSample(headers, row))
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// rowToSample converts one raw row into a header-keyed sample row,
// padding short rows with empty strings.
func rowToSample(headers []string, row []string) map[string]any {
	sample := make(map[string]any, len(headers))
	for i, header := range headers {
		if i < len(row) {
			sample[header] = row[i]
		} else {
			sample[header] = ""
		}
	}
	return sample
}
