package planner

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/lychee-technology/querycore/columnarfile"
	"github.com/lychee-technology/querycore/metastore"
	"github.com/lychee-technology/querycore/qcerr"
)

// ScanOptions configures C3's scan construction.
type ScanOptions struct {
	// Projection is the set of column names (by Table column name) to read.
	// Empty means read every column of the index.
	Projection []string
	BatchSize  int64
}

// IndexScanNode fans out over one physical file-scan node per partition/chunk
// file that belongs to this worker, exposing one output partition per file.
// It is the Go analog of CubeTableExec.
type IndexScanNode struct {
	schema   *arrow.Schema
	snapshot metastore.IndexSnapshot
	children []Node
}

func (n *IndexScanNode) Kind() Kind            { return KindIndexScan }
func (n *IndexScanNode) Schema() *arrow.Schema { return n.schema }
func (n *IndexScanNode) OutputPartitioning() Partitioning {
	return Partitioning{Count: len(n.children)}
}
func (n *IndexScanNode) Children() []Node { return n.children }

func (n *IndexScanNode) WithNewChildren(children []Node) (Node, error) {
	if len(children) != len(n.children) {
		return nil, qcerr.Newf(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode,
			"IndexScanNode: expected %d children, got %d", len(n.children), len(children))
	}
	clone := *n
	clone.children = children
	return &clone, nil
}

func (n *IndexScanNode) Execute(ctx context.Context, partition int) (RecordBatchStream, error) {
	if partition < 0 || partition >= len(n.children) {
		return nil, qcerr.Newf(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode,
			"IndexScanNode: partition %d out of range [0,%d)", partition, len(n.children))
	}
	return n.children[partition].Execute(ctx, 0)
}

// fileScanNode lazily opens one columnar file on Execute. It never exposes
// columnarfile.BatchIterator to the rest of the planner package beyond this
// file, keeping columnarfile fully decoupled from the Node graph.
type fileScanNode struct {
	schema     *arrow.Schema
	path       string
	projection []string
	batchSize  int64
}

func (n *fileScanNode) Kind() Kind                      { return KindFileScan }
func (n *fileScanNode) Schema() *arrow.Schema           { return n.schema }
func (n *fileScanNode) OutputPartitioning() Partitioning { return Partitioning{Count: 1} }
func (n *fileScanNode) Children() []Node                { return nil }

func (n *fileScanNode) WithNewChildren(children []Node) (Node, error) {
	if len(children) != 0 {
		return nil, qcerr.New(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode,
			"fileScanNode expects no children")
	}
	return n, nil
}

func (n *fileScanNode) Execute(ctx context.Context, partition int) (RecordBatchStream, error) {
	if partition != 0 {
		return nil, qcerr.Newf(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode,
			"fileScanNode has a single partition, got %d", partition)
	}
	it, err := columnarfile.Scan(ctx, n.path, columnarfile.ScanOptions{
		Projection: n.projection,
		BatchSize:  n.batchSize,
	})
	if err != nil {
		return nil, err
	}
	return &iteratorStream{it: it}, nil
}

type iteratorStream struct {
	it columnarfile.BatchIterator
}

func (s *iteratorStream) Next(ctx context.Context) (arrow.Record, error) {
	rec, err := s.it.Next()
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *iteratorStream) Close() error { return s.it.Close() }

// resolveProjection maps the requested column names onto the index's
// physical column order, erroring if a requested column is not part of the
// index's row layout — mirrors project_to_index_positions/project_to_table,
// collapsed into one name-based lookup since this core receives column
// names directly rather than table-then-index position indirection.
func resolveProjection(idx metastore.Index, projection []string) ([]int, error) {
	if len(projection) == 0 {
		return nil, nil
	}
	byName := make(map[string]int, len(idx.Columns))
	for i, c := range idx.Columns {
		byName[c.Name] = i
	}
	positions := make([]int, 0, len(projection))
	for _, name := range projection {
		pos, ok := byName[name]
		if !ok {
			return nil, qcerr.New(qcerr.TypeInvariant, qcerr.CodeProjectionNotFound,
				"projection column not found in index: "+name)
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

func arrowSchemaFor(cols []metastore.Column) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Type, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func projectedSchema(full *arrow.Schema, positions []int) *arrow.Schema {
	if positions == nil {
		return full
	}
	inSet := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		inSet[p] = struct{}{}
	}
	var fields []arrow.Field
	for i, f := range full.Fields() {
		if _, ok := inSet[i]; ok {
			fields = append(fields, f)
		}
	}
	return arrow.NewSchema(fields, nil)
}

func projectedColumnNames(idx metastore.Index, positions []int) []string {
	if positions == nil {
		return nil
	}
	names := make([]string, len(positions))
	for i, p := range positions {
		names[i] = idx.Columns[p].Name
	}
	return names
}

// BuildIndexScan is C3: it turns one IndexSnapshot, scoped to the
// partitions this worker owns, into a Node. Every partition/chunk file the
// worker owns becomes one fileScanNode; with zero such files the scan
// degenerates to a single EmptyRelationNode carrying the index's full
// (un-projected) schema — matching the original's EmptyExec placeholder,
// which is deliberately not re-projected. The whole fan-out is wrapped in a
// MergeSortNode when the snapshot participates in a join (JoinOn is
// non-empty, so input must stay sorted) or a plain MergeNode otherwise.
//
// workerPartitionIDs nil means "this worker owns every partition in the
// snapshot" (used by single-node/test setups); a non-nil, empty map means
// "this worker owns none of them".
func BuildIndexScan(
	snapshot metastore.IndexSnapshot,
	workerPartitionIDs map[uint64]struct{},
	remoteToLocal map[string]string,
	opts ScanOptions,
) (Node, error) {
	fullSchema := arrowSchemaFor(snapshot.Index.Columns)
	positions, err := resolveProjection(snapshot.Index, opts.Projection)
	if err != nil {
		return nil, err
	}
	projNames := projectedColumnNames(snapshot.Index, positions)
	outSchema := projectedSchema(fullSchema, positions)

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 4096
	}

	owns := func(id uint64) bool {
		if workerPartitionIDs == nil {
			return true
		}
		_, ok := workerPartitionIDs[id]
		return ok
	}

	var children []Node
	for _, ps := range snapshot.Partitions {
		if !owns(ps.Partition.ID) {
			continue
		}
		if ps.Partition.Active {
			local, ok := remoteToLocal[ps.Partition.RemoteName()]
			if !ok {
				panic(qcerr.Invariant("MISSING_REMOTE_PATH",
					"missing remote path %s", ps.Partition.RemoteName()))
			}
			children = append(children, &fileScanNode{
				schema:     outSchema,
				path:       local,
				projection: projNames,
				batchSize:  batchSize,
			})
		}
		for _, chunk := range ps.Chunks {
			local, ok := remoteToLocal[chunk.RemoteName()]
			if !ok {
				panic(qcerr.Invariant("MISSING_REMOTE_PATH",
					"missing remote path %s", chunk.RemoteName()))
			}
			children = append(children, &fileScanNode{
				schema:     outSchema,
				path:       local,
				projection: projNames,
				batchSize:  batchSize,
			})
		}
	}

	if len(children) == 0 {
		children = []Node{NewEmptyRelationNode(fullSchema)}
	}

	scan := &IndexScanNode{schema: outSchema, snapshot: snapshot, children: children}

	if len(snapshot.JoinOn) > 0 {
		return NewMergeSortNode(scan, snapshot.JoinOn), nil
	}
	return NewMergeNode(scan), nil
}

var _ io.Closer = (*iteratorStream)(nil)
