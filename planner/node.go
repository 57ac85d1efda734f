// Package planner implements C3 (partition scan builder), C4 (plan
// inspector), C5 (router/worker plan splitter) and C6 (cluster exchange),
// plus the small operator-tree interface (Node/Kind) they all share. These
// live in one package because C5 constructs C6's ClusterSendNode directly,
// mirroring how query_executor.rs keeps the split logic and ClusterSendExec
// in the same file.
package planner

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/lychee-technology/querycore/qcerr"
)

// Kind tags which operator a Node represents. The set is closed: every
// physical-plan node this core reasons about is one of these. Split points
// and Union are recognized by pattern-matching on Kind; index snapshots are
// read by type assertion on *IndexScanNode, so a Node that only reports
// KindIndexScan contributes no snapshot.
type Kind int

const (
	// KindOther covers any engine-provided node this core does not need to
	// recognize specially (projections, filters, scalar computations, ...).
	KindOther Kind = iota
	KindHashAggregate
	KindSort
	KindGlobalLimit
	KindUnion
	KindJoin
	KindIndexScan
	KindMerge
	KindMergeSort
	KindEmptyRelation
	KindFileScan
	KindClusterSend
)

func (k Kind) String() string {
	switch k {
	case KindHashAggregate:
		return "HashAggregate"
	case KindSort:
		return "Sort"
	case KindGlobalLimit:
		return "GlobalLimit"
	case KindUnion:
		return "Union"
	case KindJoin:
		return "Join"
	case KindIndexScan:
		return "IndexScan"
	case KindMerge:
		return "Merge"
	case KindMergeSort:
		return "MergeSort"
	case KindEmptyRelation:
		return "EmptyRelation"
	case KindFileScan:
		return "FileScan"
	case KindClusterSend:
		return "ClusterSend"
	default:
		return "Other"
	}
}

// Partitioning describes how many independent output streams a Node
// produces. The planner never reasons about *how* those streams are
// partitioned (hash, range, ...), only their count.
type Partitioning struct {
	Count int
}

// RecordBatchStream yields Arrow record batches one at a time, returning
// io.EOF once exhausted.
type RecordBatchStream interface {
	Next(ctx context.Context) (arrow.Record, error)
	Close() error
}

// Node is the capability interface every physical-plan operator this core
// touches must implement: enough surface to inspect (Kind, Schema), walk
// (Children), rewrite (WithNewChildren) and run (Execute) a plan tree
// without the planner needing to downcast to concrete engine types.
type Node interface {
	Kind() Kind
	Schema() *arrow.Schema
	OutputPartitioning() Partitioning
	Children() []Node
	WithNewChildren(children []Node) (Node, error)
	Execute(ctx context.Context, partition int) (RecordBatchStream, error)
}

// ExecFunc runs one output partition of a GenericNode given its (already
// rewritten) children.
type ExecFunc func(ctx context.Context, partition int, children []Node) (RecordBatchStream, error)

// GenericNode is a reusable Node implementation for operators whose
// semantics this core does not need to know beyond their Kind tag — in
// particular every node an injected Engine hands back (HashAggregate, Sort,
// GlobalLimit, Union, Join, or anything else). Engine authors construct one
// of these per physical-plan node instead of exposing their own concrete
// types across the boundary.
type GenericNode struct {
	kind         Kind
	schema       *arrow.Schema
	partitioning Partitioning
	children     []Node
	exec         ExecFunc
}

// NewGenericNode builds a GenericNode.
func NewGenericNode(kind Kind, schema *arrow.Schema, partitioning Partitioning, children []Node, exec ExecFunc) *GenericNode {
	return &GenericNode{kind: kind, schema: schema, partitioning: partitioning, children: children, exec: exec}
}

func (n *GenericNode) Kind() Kind                      { return n.kind }
func (n *GenericNode) Schema() *arrow.Schema           { return n.schema }
func (n *GenericNode) OutputPartitioning() Partitioning { return n.partitioning }
func (n *GenericNode) Children() []Node                { return n.children }

func (n *GenericNode) WithNewChildren(children []Node) (Node, error) {
	if len(children) != len(n.children) {
		return nil, qcerr.Newf(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode,
			"WithNewChildren: expected %d children, got %d", len(n.children), len(children))
	}
	clone := *n
	clone.children = children
	return &clone, nil
}

func (n *GenericNode) Execute(ctx context.Context, partition int) (RecordBatchStream, error) {
	return n.exec(ctx, partition, n.children)
}

// EmptyRelationNode is a zero-row leaf node of a fixed schema. Used as the
// router-side replacement for a split point's child when no index snapshot
// is found below the split point (so nothing is sent to workers), and as
// the placeholder for an IndexScan whose partition set resolved to nothing
// on this worker.
type EmptyRelationNode struct {
	schema *arrow.Schema
}

// NewEmptyRelationNode builds an EmptyRelationNode of the given schema.
func NewEmptyRelationNode(schema *arrow.Schema) *EmptyRelationNode {
	return &EmptyRelationNode{schema: schema}
}

func (n *EmptyRelationNode) Kind() Kind                      { return KindEmptyRelation }
func (n *EmptyRelationNode) Schema() *arrow.Schema           { return n.schema }
func (n *EmptyRelationNode) OutputPartitioning() Partitioning { return Partitioning{Count: 1} }
func (n *EmptyRelationNode) Children() []Node                { return nil }

func (n *EmptyRelationNode) WithNewChildren(children []Node) (Node, error) {
	if len(children) != 0 {
		return nil, qcerr.New(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode,
			"EmptyRelationNode expects no children")
	}
	return n, nil
}

func (n *EmptyRelationNode) Execute(ctx context.Context, partition int) (RecordBatchStream, error) {
	if partition != 0 {
		return nil, qcerr.Newf(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode,
			"EmptyRelationNode has a single partition, got %d", partition)
	}
	return &exhaustedStream{}, nil
}

type exhaustedStream struct{}

func (s *exhaustedStream) Next(ctx context.Context) (arrow.Record, error) { return nil, io.EOF }
func (s *exhaustedStream) Close() error                                   { return nil }

// describe renders a one-line, loggable summary of a plan tree — the Go
// analog of the original's "{:#?}" debug-formatted physical plan, used for
// the debug-level plan tracing (enabled by Logging.TracePhysicalPlans) and
// the slow/error query logs.
func describe(n Node) string {
	children := n.Children()
	if len(children) == 0 {
		return n.Kind().String()
	}
	parts := make([]string, 0, len(children))
	for _, c := range children {
		parts = append(parts, describe(c))
	}
	return fmt.Sprintf("%s(%v)", n.Kind(), parts)
}

// Describe renders a one-line, loggable summary of a plan tree.
func Describe(n Node) string { return describe(n) }
