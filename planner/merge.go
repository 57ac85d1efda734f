package planner

import (
	"container/heap"
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/lychee-technology/querycore/qcerr"
)

// MergeNode concatenates all output partitions of its single child into one
// output partition, in child-partition order, without re-sorting. The Go
// analog of MergeExec.
type MergeNode struct {
	child Node
}

// NewMergeNode wraps child in a MergeNode.
func NewMergeNode(child Node) *MergeNode { return &MergeNode{child: child} }

func (n *MergeNode) Kind() Kind            { return KindMerge }
func (n *MergeNode) Schema() *arrow.Schema { return n.child.Schema() }
func (n *MergeNode) OutputPartitioning() Partitioning { return Partitioning{Count: 1} }
func (n *MergeNode) Children() []Node      { return []Node{n.child} }

func (n *MergeNode) WithNewChildren(children []Node) (Node, error) {
	if len(children) != 1 {
		return nil, qcerr.New(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode, "MergeNode expects exactly one child")
	}
	return NewMergeNode(children[0]), nil
}

func (n *MergeNode) Execute(ctx context.Context, partition int) (RecordBatchStream, error) {
	if partition != 0 {
		return nil, qcerr.Newf(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode,
			"MergeNode has a single output partition, got %d", partition)
	}
	return &concatStream{ctx: ctx, child: n.child, count: n.child.OutputPartitioning().Count}, nil
}

type concatStream struct {
	ctx     context.Context
	child   Node
	count   int
	next    int
	current RecordBatchStream
}

func (s *concatStream) Next(ctx context.Context) (arrow.Record, error) {
	for {
		if s.current == nil {
			if s.next >= s.count {
				return nil, io.EOF
			}
			stream, err := s.child.Execute(ctx, s.next)
			if err != nil {
				return nil, err
			}
			s.current = stream
		}
		rec, err := s.current.Next(ctx)
		if err == io.EOF {
			s.current.Close()
			s.current = nil
			s.next++
			continue
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
}

func (s *concatStream) Close() error {
	if s.current != nil {
		return s.current.Close()
	}
	return nil
}

// MergeSortNode performs a sort-key-preserving k-way merge across its
// child's output partitions, each of which is assumed already sorted by
// sortColumns. The Go analog of MergeSortExec, used wherever a join needs
// its input to stay globally sorted across partition boundaries.
type MergeSortNode struct {
	child       Node
	sortColumns []string
}

// NewMergeSortNode wraps child in a MergeSortNode sorted by sortColumns.
func NewMergeSortNode(child Node, sortColumns []string) *MergeSortNode {
	return &MergeSortNode{child: child, sortColumns: sortColumns}
}

func (n *MergeSortNode) Kind() Kind            { return KindMergeSort }
func (n *MergeSortNode) Schema() *arrow.Schema { return n.child.Schema() }
func (n *MergeSortNode) OutputPartitioning() Partitioning { return Partitioning{Count: 1} }
func (n *MergeSortNode) Children() []Node      { return []Node{n.child} }

func (n *MergeSortNode) WithNewChildren(children []Node) (Node, error) {
	if len(children) != 1 {
		return nil, qcerr.New(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode, "MergeSortNode expects exactly one child")
	}
	return NewMergeSortNode(children[0], n.sortColumns), nil
}

func (n *MergeSortNode) Execute(ctx context.Context, partition int) (RecordBatchStream, error) {
	if partition != 0 {
		return nil, qcerr.Newf(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode,
			"MergeSortNode has a single output partition, got %d", partition)
	}

	schema := n.child.Schema()
	keyIndices := make([]int, len(n.sortColumns))
	for i, name := range n.sortColumns {
		idx := schema.FieldIndices(name)
		if len(idx) == 0 {
			return nil, qcerr.New(qcerr.TypeInvariant, qcerr.CodeProjectionNotFound,
				"sort key column not found: "+name)
		}
		keyIndices[i] = idx[0]
	}

	count := n.child.OutputPartitioning().Count
	cursors := make([]*partitionCursor, 0, count)
	for i := 0; i < count; i++ {
		stream, err := n.child.Execute(ctx, i)
		if err != nil {
			for _, c := range cursors {
				c.stream.Close()
			}
			return nil, err
		}
		cursors = append(cursors, &partitionCursor{stream: stream, keyIndices: keyIndices})
	}
	return &mergeSortStream{ctx: ctx, schema: schema, cursors: cursors, batchSize: 4096}, nil
}

// partitionCursor tracks the current batch and row offset of one input
// partition to the merge.
type partitionCursor struct {
	stream     RecordBatchStream
	keyIndices []int
	batch      arrow.Record
	row        int
	done       bool
}

func (c *partitionCursor) advance(ctx context.Context) error {
	if c.done {
		return nil
	}
	for {
		if c.batch != nil && c.row < int(c.batch.NumRows()) {
			return nil
		}
		if c.batch != nil {
			c.batch.Release()
			c.batch = nil
		}
		rec, err := c.stream.Next(ctx)
		if err == io.EOF {
			c.done = true
			return nil
		}
		if err != nil {
			return err
		}
		c.batch = rec
		c.row = 0
		if int(c.batch.NumRows()) > 0 {
			return nil
		}
	}
}

func (c *partitionCursor) key() []rowKeyValue {
	key := make([]rowKeyValue, len(c.keyIndices))
	for i, idx := range c.keyIndices {
		key[i] = extractKey(c.batch.Column(idx), c.row)
	}
	return key
}

// cursorHeap is a min-heap of partitionCursor ordered by current row key.
type cursorHeap []*partitionCursor

func (h cursorHeap) Len() int { return len(h) }
func (h cursorHeap) Less(i, j int) bool {
	return compareKeys(h[i].key(), h[j].key()) < 0
}
func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)   { *h = append(*h, x.(*partitionCursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type mergeSortStream struct {
	ctx       context.Context
	schema    *arrow.Schema
	cursors   []*partitionCursor
	batchSize int
	heapInit  bool
	h         cursorHeap
}

func (s *mergeSortStream) ensureHeap(ctx context.Context) error {
	if s.heapInit {
		return nil
	}
	s.heapInit = true
	s.h = make(cursorHeap, 0, len(s.cursors))
	for _, c := range s.cursors {
		if err := c.advance(ctx); err != nil {
			return err
		}
		if !c.done {
			s.h = append(s.h, c)
		}
	}
	heap.Init(&s.h)
	return nil
}

func (s *mergeSortStream) Next(ctx context.Context) (arrow.Record, error) {
	if err := s.ensureHeap(ctx); err != nil {
		return nil, err
	}
	if len(s.h) == 0 {
		return nil, io.EOF
	}

	mem := memory.DefaultAllocator
	builders := newRowBuilders(mem, s.schema)
	defer releaseBuilders(builders)

	count := 0
	for len(s.h) > 0 && count < s.batchSize {
		c := s.h[0]
		appendRow(builders, c.batch, c.row)
		c.row++
		count++
		if err := c.advance(ctx); err != nil {
			return nil, err
		}
		if c.done {
			heap.Pop(&s.h)
		} else {
			heap.Fix(&s.h, 0)
		}
	}

	cols := make([]arrow.Array, len(builders))
	for i, b := range builders {
		cols[i] = b.NewArray()
	}
	rec := array.NewRecord(s.schema, cols, int64(count))
	for _, c := range cols {
		c.Release()
	}
	return rec, nil
}

func (s *mergeSortStream) Close() error {
	for _, c := range s.cursors {
		if c.batch != nil {
			c.batch.Release()
		}
		c.stream.Close()
	}
	return nil
}
