// Package columnarfile is a standalone "scan a columnar file into batches"
// collaborator: it knows how to open a Parquet file and hand back an
// iterator of Arrow record batches, with column projection and a target
// batch size. It has no knowledge of the planner's operator tree — the
// planner wraps this in its own leaf node to avoid an import cycle.
package columnarfile

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/lychee-technology/querycore/qcerr"
)

// BatchIterator yields record batches one at a time until io.EOF.
type BatchIterator interface {
	// Next returns the next batch, or io.EOF once exhausted.
	Next() (arrow.Record, error)
	// Schema reports the (already-projected) output schema.
	Schema() *arrow.Schema
	// Close releases resources held by the iterator.
	Close() error
}

// ScanOptions controls how a columnar file is opened for scanning.
type ScanOptions struct {
	// Projection is the list of column names to read; nil/empty means all
	// columns.
	Projection []string
	BatchSize  int64
}

type parquetIterator struct {
	f       *file.Reader
	rdr     pqarrow.RecordReader
	schema  *arrow.Schema
}

func (it *parquetIterator) Next() (arrow.Record, error) {
	rec, err := it.rdr.Read()
	if err != nil {
		return nil, err
	}
	rec.Retain()
	return rec, nil
}

func (it *parquetIterator) Schema() *arrow.Schema { return it.schema }

func (it *parquetIterator) Close() error {
	return it.f.Close()
}

// Scan opens a Parquet file at path and returns an iterator over its rows,
// projected down to opts.Projection and chunked at opts.BatchSize.
func Scan(ctx context.Context, path string, opts ScanOptions) (BatchIterator, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 4096
	}
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, qcerr.New(qcerr.TypeEngine, "PARQUET_OPEN_FAILED",
			"opening parquet file "+path).WithCause(err)
	}

	arrowRdr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{
		BatchSize: opts.BatchSize,
	}, memory.DefaultAllocator)
	if err != nil {
		rdr.Close()
		return nil, qcerr.New(qcerr.TypeEngine, "PARQUET_ARROW_READER_FAILED",
			"constructing arrow reader over "+path).WithCause(err)
	}

	manifest := arrowRdr.Manifest
	colIndices, err := resolveColumnIndices(manifest.SchemaFields(), opts.Projection)
	if err != nil {
		rdr.Close()
		return nil, err
	}

	recRdr, err := arrowRdr.GetRecordReader(ctx, colIndices, nil)
	if err != nil {
		rdr.Close()
		return nil, qcerr.New(qcerr.TypeEngine, "PARQUET_RECORD_READER_FAILED",
			"building record reader over "+path).WithCause(err)
	}

	return &parquetIterator{f: rdr, rdr: recRdr, schema: recRdr.Schema()}, nil
}

func resolveColumnIndices(fields []pqarrow.SchemaField, projection []string) ([]int, error) {
	if len(projection) == 0 {
		return nil, nil
	}
	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		byName[f.Field.Name] = i
	}
	out := make([]int, 0, len(projection))
	for _, name := range projection {
		idx, ok := byName[name]
		if !ok {
			return nil, qcerr.New(qcerr.TypeEngine, qcerr.CodeProjectionNotFound,
				"projection column not found: "+name)
		}
		out = append(out, idx)
	}
	return out, nil
}

var _ io.Closer = (*parquetIterator)(nil)
