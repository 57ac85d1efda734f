package planner

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/querycore/metastore"
)

func sampleIndex() metastore.Index {
	return metastore.Index{
		Name: "by_id",
		Columns: []metastore.Column{
			{Name: "id", Type: arrow.PrimitiveTypes.Int64},
			{Name: "name", Type: arrow.BinaryTypes.String},
			{Name: "amount", Type: arrow.PrimitiveTypes.Float64},
		},
	}
}

func TestResolveProjection(t *testing.T) {
	idx := sampleIndex()

	positions, err := resolveProjection(idx, nil)
	require.NoError(t, err)
	assert.Nil(t, positions)

	positions, err = resolveProjection(idx, []string{"amount", "id"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, positions)

	_, err = resolveProjection(idx, []string{"missing"})
	assert.Error(t, err)
}

func TestBuildIndexScanEmptyPartitionsFallsBackToEmptyRelation(t *testing.T) {
	idx := sampleIndex()
	snapshot := metastore.IndexSnapshot{
		Table: metastore.Table{Name: "orders"},
		Index: idx,
	}

	node, err := BuildIndexScan(snapshot, map[uint64]struct{}{}, nil, ScanOptions{})
	require.NoError(t, err)

	mergeNode, ok := node.(*MergeNode)
	require.True(t, ok)
	scan := mergeNode.Children()[0].(*IndexScanNode)
	require.Len(t, scan.Children(), 1)
	empty, ok := scan.Children()[0].(*EmptyRelationNode)
	require.True(t, ok)
	// The placeholder carries the full, un-projected schema even though a
	// projection may have been requested.
	assert.Equal(t, 3, len(empty.Schema().Fields()))
}

func TestBuildIndexScanOwnedPartitionsProjectsSchema(t *testing.T) {
	idx := sampleIndex()
	part := metastore.Partition{ID: 1, FileName: "p1.parquet", Active: true}
	snapshot := metastore.IndexSnapshot{
		Table:      metastore.Table{Name: "orders"},
		Index:      idx,
		Partitions: []metastore.PartitionSnapshot{{Partition: part}},
	}
	remoteToLocal := map[string]string{"p1.parquet": "/tmp/p1.parquet"}

	node, err := BuildIndexScan(snapshot, nil, remoteToLocal, ScanOptions{Projection: []string{"id", "amount"}})
	require.NoError(t, err)

	mergeNode := node.(*MergeNode)
	scan := mergeNode.Children()[0].(*IndexScanNode)
	require.Len(t, scan.Children(), 1)
	fs := scan.Children()[0].(*fileScanNode)
	assert.Equal(t, "/tmp/p1.parquet", fs.path)
	assert.Equal(t, []string{"id", "amount"}, fs.projection)
	assert.Equal(t, 2, len(fs.Schema().Fields()))
}

func TestBuildIndexScanMissingRemotePathPanics(t *testing.T) {
	idx := sampleIndex()
	part := metastore.Partition{ID: 1, FileName: "missing.parquet", Active: true}
	snapshot := metastore.IndexSnapshot{
		Table:      metastore.Table{Name: "orders"},
		Index:      idx,
		Partitions: []metastore.PartitionSnapshot{{Partition: part}},
	}

	assert.Panics(t, func() {
		_, _ = BuildIndexScan(snapshot, nil, map[string]string{}, ScanOptions{})
	})
}

func TestBuildIndexScanUsesMergeSortWhenJoinOnSet(t *testing.T) {
	idx := sampleIndex()
	snapshot := metastore.IndexSnapshot{
		Table:  metastore.Table{Name: "orders"},
		Index:  idx,
		JoinOn: []string{"id"},
	}

	node, err := BuildIndexScan(snapshot, nil, nil, ScanOptions{})
	require.NoError(t, err)
	_, ok := node.(*MergeSortNode)
	assert.True(t, ok)
}
