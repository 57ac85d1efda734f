package querycore

import (
	"context"
	"io"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/querycore/planner"
)

var execTestSchema = arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.PrimitiveTypes.Int64}}, nil)

// leafScanNode is a one-partition Node that yields a single fixed batch,
// standing in for an Engine-produced scan leaf in facade tests.
type leafScanNode struct {
	mem memory.Allocator
	ids []int64
}

func (n *leafScanNode) Kind() planner.Kind    { return planner.KindIndexScan }
func (n *leafScanNode) Schema() *arrow.Schema { return execTestSchema }
func (n *leafScanNode) OutputPartitioning() planner.Partitioning {
	return planner.Partitioning{Count: 1}
}
func (n *leafScanNode) Children() []planner.Node { return nil }
func (n *leafScanNode) WithNewChildren(children []planner.Node) (planner.Node, error) {
	return n, nil
}
func (n *leafScanNode) Execute(ctx context.Context, partition int) (planner.RecordBatchStream, error) {
	b := array.NewRecordBuilder(n.mem, execTestSchema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues(n.ids, nil)
	rec := b.NewRecord()
	return &oneShotStream{rec: rec}, nil
}

type oneShotStream struct {
	rec  arrow.Record
	done bool
}

func (s *oneShotStream) Next(ctx context.Context) (arrow.Record, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	return s.rec, nil
}
func (s *oneShotStream) Close() error { return nil }

// wrapperNode is a single-child pass-through operator, standing in for
// whatever trivial projection/coalesce node a real engine wraps a scan leaf
// in — RouterSplit/WorkerSplit's split-point invariant (exactly one child)
// assumes a physical plan is never a bare leaf at its root.
type wrapperNode struct {
	child planner.Node
}

func (n *wrapperNode) Kind() planner.Kind                         { return planner.KindOther }
func (n *wrapperNode) Schema() *arrow.Schema                      { return n.child.Schema() }
func (n *wrapperNode) OutputPartitioning() planner.Partitioning   { return n.child.OutputPartitioning() }
func (n *wrapperNode) Children() []planner.Node                   { return []planner.Node{n.child} }
func (n *wrapperNode) WithNewChildren(children []planner.Node) (planner.Node, error) {
	return &wrapperNode{child: children[0]}, nil
}
func (n *wrapperNode) Execute(ctx context.Context, partition int) (planner.RecordBatchStream, error) {
	return n.child.Execute(ctx, partition)
}

type fakeEngine struct {
	node planner.Node
}

func (e *fakeEngine) BuildPhysicalPlan(ctx context.Context, logical LogicalPlan, tableProvider TableProvider) (planner.Node, error) {
	return e.node, nil
}

type fakeCluster struct {
	mem memory.Allocator
	ids []int64
}

func (c *fakeCluster) AvailableNodes(ctx context.Context) ([]string, error) {
	return []string{"worker-1"}, nil
}

func (c *fakeCluster) RunSelect(ctx context.Context, node string, plan planner.SerializedPlan) ([]arrow.Record, error) {
	b := array.NewRecordBuilder(c.mem, execTestSchema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues(c.ids, nil)
	return []arrow.Record{b.NewRecord()}, nil
}

type fakeTableProvider struct{}

func (fakeTableProvider) Scan(ctx context.Context, tableName string, projection []string, batchSize int64) (planner.Node, error) {
	return nil, nil
}
func (fakeTableProvider) Statistics() Statistics { return Statistics{} }

// Router plans with no IndexScanNode anywhere in them fall back to an empty
// relation once ClusterSend can find nothing to fan out to — a real
// scenario (a plan whose leaves are constants or external sources rather
// than index scans), not a test artifact: see wrapWithClusterSend's
// empty-groups branch. leafScanNode reports KindIndexScan but is not an
// *IndexScanNode, so it contributes no snapshot group.
func TestExecuteRouterPlanWithNoScanMaterializesEmptyDataFrame(t *testing.T) {
	mem := memory.NewGoAllocator()
	leaf := &leafScanNode{mem: mem, ids: []int64{11}}
	root := &wrapperNode{child: leaf}
	cluster := &fakeCluster{mem: mem, ids: []int64{1, 2, 3}}
	executor := NewQueryExecutor(&fakeEngine{node: root}, cluster, nil)

	df, err := executor.ExecuteRouterPlan(context.Background(), Plan{Logical: "noop"}, fakeTableProvider{})
	require.NoError(t, err)
	// EmptyRelationNode never yields a batch (not even an empty one), so no
	// column metadata can be derived either — mirrors batch_to_dataframe
	// exactly: schema comes from the first batch seen, and there is none.
	assert.Equal(t, 0, len(df.Columns))
	assert.Equal(t, 0, df.NumRows())
}

func TestExecuteWorkerPlanReturnsRawBatches(t *testing.T) {
	mem := memory.NewGoAllocator()
	leaf := &leafScanNode{mem: mem, ids: []int64{7, 8}}
	root := &wrapperNode{child: leaf}
	executor := NewQueryExecutor(&fakeEngine{node: root}, &fakeCluster{mem: mem}, nil)

	batches, err := executor.ExecuteWorkerPlan(context.Background(), Plan{Logical: "noop"}, fakeTableProvider{})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, int64(2), batches[0].NumRows())
}

func TestExecuteRouterPlanPropagatesEngineFailure(t *testing.T) {
	cfg := DefaultConfig()
	executor := NewQueryExecutor(&failingEngine{}, &fakeCluster{}, cfg)

	_, err := executor.ExecuteRouterPlan(context.Background(), Plan{Logical: "noop"}, fakeTableProvider{})
	assert.Error(t, err)
}

type failingEngine struct{}

func (failingEngine) BuildPhysicalPlan(ctx context.Context, logical LogicalPlan, tableProvider TableProvider) (planner.Node, error) {
	return nil, assertError{}
}

type assertError struct{}

func (assertError) Error() string { return "engine failed" }
