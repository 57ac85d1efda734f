// Package batchcodec implements C2: serializing and deserializing a slice of
// Arrow record batches across the wire between router and worker nodes,
// using Arrow's own IPC stream format as the codec.
package batchcodec

import (
	"bytes"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/lychee-technology/querycore/qcerr"
)

// Encode serializes a non-empty slice of record batches (which must all
// share one schema) into the Arrow IPC stream wire format. An empty input is
// a caller error, not an empty-but-valid stream — the caller is expected to
// special-case "nothing to send" upstream of this codec.
func Encode(batches []arrow.Record) ([]byte, error) {
	if len(batches) == 0 {
		return nil, qcerr.New(qcerr.TypeSerialization, qcerr.CodeEmptyBatchInput,
			"cannot encode an empty batch slice")
	}
	schema := batches[0].Schema()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(memory.DefaultAllocator))
	for _, b := range batches {
		if !b.Schema().Equal(schema) {
			return nil, qcerr.New(qcerr.TypeSerialization, qcerr.CodeSchemaMismatch,
				"all batches in one stream must share a schema")
		}
		if err := w.Write(b); err != nil {
			return nil, qcerr.New(qcerr.TypeSerialization, "IPC_WRITE_FAILED",
				"writing record batch to IPC stream").WithCause(err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, qcerr.New(qcerr.TypeSerialization, "IPC_WRITE_FAILED",
			"closing IPC stream writer").WithCause(err)
	}
	return buf.Bytes(), nil
}

// Decode reads back a slice of record batches previously produced by
// Encode. Every record returned is retained; callers are responsible for
// calling Release on each once they are done with them.
func Decode(data []byte) ([]arrow.Record, error) {
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, qcerr.New(qcerr.TypeSerialization, "IPC_READ_FAILED",
			"opening IPC stream reader").WithCause(err)
	}
	defer r.Release()

	var out []arrow.Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, qcerr.New(qcerr.TypeSerialization, "IPC_READ_FAILED",
				"reading record batch from IPC stream").WithCause(err)
		}
		rec.Retain()
		out = append(out, rec)
	}
	return out, nil
}
