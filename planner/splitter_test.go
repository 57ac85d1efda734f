package planner

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSerializedPlan struct{ ids map[uint64]struct{} }

func (p fakeSerializedPlan) WithPartitionIDs(ids map[uint64]struct{}) SerializedPlan {
	return fakeSerializedPlan{ids: ids}
}

type fakeCluster struct{ nodes []string }

func (c fakeCluster) AvailableNodes(ctx context.Context) ([]string, error) { return c.nodes, nil }
func (c fakeCluster) RunSelect(ctx context.Context, node string, plan SerializedPlan) ([]arrow.Record, error) {
	return nil, nil
}

func TestRouterSplitAtHashAggregate(t *testing.T) {
	scan := indexScanFor("orders")
	agg := NewGenericNode(KindHashAggregate, testSchema, Partitioning{Count: 1}, []Node{scan}, noopExec)

	split, err := RouterSplit(agg, fakeSerializedPlan{}, fakeCluster{nodes: []string{"w1"}}, []string{"w1"})
	require.NoError(t, err)

	require.Len(t, split.Children(), 1)
	mergeNode, ok := split.Children()[0].(*MergeNode)
	require.True(t, ok)
	_, ok = mergeNode.Children()[0].(*ClusterSendNode)
	assert.True(t, ok)
}

func TestRouterSplitFallsBackToSubtreeRootWithNoMatchingKind(t *testing.T) {
	scan := indexScanFor("orders")
	proj := NewGenericNode(KindOther, testSchema, Partitioning{Count: 1}, []Node{scan}, noopExec)

	split, err := RouterSplit(proj, fakeSerializedPlan{}, fakeCluster{nodes: []string{"w1"}}, []string{"w1"})
	require.NoError(t, err)

	// No HashAggregate/Sort/GlobalLimit anywhere: the predicate matches
	// unconditionally at proj itself, so proj is the split point.
	mergeNode, ok := split.Children()[0].(*MergeNode)
	require.True(t, ok)
	_, ok = mergeNode.Children()[0].(*ClusterSendNode)
	assert.True(t, ok)
}

func TestWorkerSplitMirrorsRouterSplit(t *testing.T) {
	scan := indexScanFor("orders")
	agg := NewGenericNode(KindHashAggregate, testSchema, Partitioning{Count: 1}, []Node{scan}, noopExec)

	worker := WorkerSplit(agg)
	assert.Same(t, scan, worker)
}

func TestWorkerSplitRecursesPastNonMatchingNodes(t *testing.T) {
	scan := indexScanFor("orders")
	sortNode := NewGenericNode(KindSort, testSchema, Partitioning{Count: 1}, []Node{scan}, noopExec)
	limitNode := NewGenericNode(KindGlobalLimit, testSchema, Partitioning{Count: 1}, []Node{sortNode}, noopExec)

	// Sort is found before GlobalLimit in firstMatchingPredicate's priority
	// order, so the split point is Sort, not GlobalLimit.
	worker := WorkerSplit(limitNode)
	assert.Same(t, scan, worker)
}
