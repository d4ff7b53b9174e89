package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"
)

// Column is a flat column of a Parquet file.
type Column struct {
	Name     string
	Kind     parquet.Kind
	Optional bool
}

// ParquetReader reads the rows of a local Parquet file one by one.
// It implements the interface pgx.CopyFromSource for reading rows in the format supported by CopyFrom() function.
type ParquetReader struct {
	// fileInfo contains the path and the size of the file to be processed.
	fileInfo FileInfo

	// mapper converts Parquet values into values for the target.
	mapper Transformer

	// file represents the underlying os.File, used to read the current Parquet file's data.
	file *os.File

	// parquetFile is a reference to the open Parquet file being processed by the ParquetReader.
	parquetFile *parquet.File

	// rowGroup the index of the row group being read
	rowGroup int

	// rows reads the current row group
	rows parquet.Rows

	// buffer holds one row at a time
	buffer []parquet.Row

	// nextRow the data of the current row, represented as a slice of interface{} to accommodate any type.
	nextRow []any

	// lastError stores the most recent error encountered by the ParquetReader, or nil if no errors occurred.
	lastError error

	// rowCounter keeps track of the number of rows processed by the ParquetReader during iteration.
	rowCounter int64
}

// NewParquetReader creates a new instance of ParquetReader using the supplied FileInfo and Transformer.
func NewParquetReader(file FileInfo, transformer Transformer) *ParquetReader {
	if transformer == nil {
		transformer = NativeTransformer{}
	}
	return &ParquetReader{
		fileInfo: file,
		mapper:   transformer,
		buffer:   make([]parquet.Row, 1),
	}
}

// Open opens the Parquet file and reads its metadata.
func (r *ParquetReader) Open() error {
	if r.file != nil {
		return fmt.Errorf("the Parquet file %s is already open", r.fileInfo.LocalPath)
	}
	fileName := r.fileInfo.LocalPath
	osFile, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", fileName, err)
	}

	fileStat, err := osFile.Stat()
	if err != nil {
		_ = osFile.Close()
		return fmt.Errorf("failed to get file info for %s: %w", fileName, err)
	}
	f, err := parquet.OpenFile(osFile, fileStat.Size())
	if err != nil {
		_ = osFile.Close()
		return fmt.Errorf("failed to open the Parquet file %s: %w", fileName, err)
	}
	r.file = osFile
	r.parquetFile = f
	log.Debug("Parquet file opened", zap.String("file", fileName), zap.Int64("rows", f.NumRows()),
		zap.Int("row_groups", len(f.RowGroups())))
	return nil
}

// Close releases the resources held by the ParquetReader.
func (r *ParquetReader) Close() (err error) {
	if r.rows != nil {
		_ = r.rows.Close()
		r.rows = nil
	}
	if r.file != nil {
		err = r.file.Close()
		r.file = nil
	}
	return
}

// RowCount returns the total number of rows in the Parquet file.
func (r *ParquetReader) RowCount() int64 {
	if r.parquetFile == nil {
		return 0
	}
	return r.parquetFile.NumRows()
}

// RowsRead returns the number of rows returned by Next so far.
func (r *ParquetReader) RowsRead() int64 {
	return r.rowCounter
}

// Columns returns the flat columns of the file, nested and repeated columns are not supported.
func (r *ParquetReader) Columns() ([]Column, error) {
	if r.parquetFile == nil {
		return nil, fmt.Errorf("the Parquet file %s is not open", r.fileInfo.LocalPath)
	}
	fields := r.parquetFile.Schema().Fields()
	columns := make([]Column, 0, len(fields))
	for _, field := range fields {
		if !field.Leaf() || field.Repeated() {
			return nil, fmt.Errorf("column '%s' in %s is nested or repeated, only flat columns are supported",
				field.Name(), r.fileInfo.LocalPath)
		}
		columns = append(columns, Column{
			Name:     field.Name(),
			Kind:     field.Type().Kind(),
			Optional: field.Optional(),
		})
	}
	return columns, nil
}

// Next advances to the next row, it returns false at the end of the file or on error.
// It implements the interface pgx.CopyFromSource
func (r *ParquetReader) Next() bool {
	if r.lastError != nil {
		return false
	}
	if r.parquetFile == nil {
		if r.lastError = r.Open(); r.lastError != nil {
			return false
		}
	}
	for {
		if r.rows == nil {
			groups := r.parquetFile.RowGroups()
			if r.rowGroup >= len(groups) {
				return false
			}
			log.Trace("RowGroup", zap.Int("index", r.rowGroup))
			r.rows = groups[r.rowGroup].Rows()
		}

		n, err := r.rows.ReadRows(r.buffer)
		if err != nil && !errors.Is(err, io.EOF) {
			r.lastError = fmt.Errorf("error reading rows of %s: %w", r.fileInfo.LocalPath, err)
			return false
		}
		if n == 1 {
			if r.lastError = r.transform(r.buffer[0]); r.lastError != nil {
				return false
			}
			r.rowCounter++
			if err != nil {
				r.nextGroup()
			}
			return true
		}
		// io.EOF, or nothing left in this row group
		r.nextGroup()
	}
}

func (r *ParquetReader) nextGroup() {
	_ = r.rows.Close()
	r.rows = nil
	r.rowGroup++
}

func (r *ParquetReader) transform(row parquet.Row) error {
	values := make([]any, len(row))
	for i, x := range row {
		v, err := r.mapper.Transform(x)
		if err != nil {
			return fmt.Errorf("error transforming value %d of row %d: %w", i, r.rowCounter, err)
		}
		values[i] = v
	}
	log.Trace("Row", zap.Any("row", values), zap.Int64("rowCounter", r.rowCounter))
	r.nextRow = values
	return nil
}

// Values returns all values from the current row or an error if one occurred during the read process.
// It implements the interface pgx.CopyFromSource
func (r *ParquetReader) Values() ([]any, error) {
	if r.lastError != nil {
		return nil, r.lastError
	}
	return r.nextRow, nil
}

// Err returns the last error encountered by the ParquetReader, or nil if no error has occurred.
// It implements the interface pgx.CopyFromSource
func (r *ParquetReader) Err() error {
	return r.lastError
}

// CountRows opens a Parquet file just to read the number of rows from its metadata.
func CountRows(file FileInfo) (int64, error) {
	reader := NewParquetReader(file, nil)
	if err := reader.Open(); err != nil {
		return 0, err
	}
	defer func(reader *ParquetReader) {
		_ = reader.Close()
	}(reader)
	return reader.RowCount(), nil
}
