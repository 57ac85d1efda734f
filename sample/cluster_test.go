package sample

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/querycore"
)

func TestWirePlanRoundTrip(t *testing.T) {
	original := querycore.Plan{
		Logical:               Query{Table: "orders", Projection: []string{"id", "amount"}, BatchSize: 1024},
		PartitionIDsToExecute: map[uint64]struct{}{1: {}, 2: {}},
	}

	wp, err := toWirePlan(original)
	require.NoError(t, err)
	assert.Equal(t, "orders", wp.Table)
	assert.ElementsMatch(t, []string{"id", "amount"}, wp.Projection)
	assert.ElementsMatch(t, []uint64{1, 2}, wp.PartitionIDs)

	roundTripped := wp.toPlan()
	q, ok := roundTripped.Logical.(Query)
	require.True(t, ok)
	assert.Equal(t, "orders", q.Table)
	assert.Len(t, roundTripped.PartitionIDsToExecute, 2)
}

func TestToWirePlanRejectsNonSampleLogicalPlan(t *testing.T) {
	_, err := toWirePlan(querycore.Plan{Logical: "not-a-sample-query"})
	assert.Error(t, err)
}

func TestHTTPClusterAvailableNodesRequiresConfiguredAddrs(t *testing.T) {
	c := NewHTTPCluster(nil, nil)
	_, err := c.AvailableNodes(context.Background())
	assert.Error(t, err)

	c = NewHTTPCluster([]string{"http://worker-1:8081"}, nil)
	nodes, err := c.AvailableNodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"http://worker-1:8081"}, nodes)
}

// TestHTTPClusterRunSelectAgainstWorkerHandler exercises the router-to-worker
// transport end to end: a table with zero partitions resolves to an
// EmptyRelationNode on the worker side, so ExecuteWorkerPlan yields zero
// batches — the handler must still answer 200 with an empty body rather than
// surfacing the codec's empty-input error, and RunSelect must treat that
// empty body as zero records rather than an IPC decode failure.
func TestHTTPClusterRunSelectAgainstWorkerHandler(t *testing.T) {
	manifest := &Manifest{Tables: []ManifestTable{
		{
			Name: "orders",
			Index: ManifestIndex{
				Name:    "orders_default",
				Columns: []ManifestColumn{{Name: "id", Type: "int64"}},
			},
		},
	}}
	executor := querycore.NewQueryExecutor(NewScanOnlyEngine(), nil, nil)
	handler := &WorkerHandler{Executor: executor, Manifest: manifest}

	server := httptest.NewServer(handler)
	defer server.Close()

	cluster := NewHTTPCluster([]string{server.URL}, server.Client())
	plan := querycore.Plan{Logical: Query{Table: "orders", BatchSize: 1024}}

	records, err := cluster.RunSelect(context.Background(), server.URL, plan)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHTTPClusterRunSelectRejectsNonQuerycorePlan(t *testing.T) {
	c := NewHTTPCluster([]string{"http://worker-1"}, nil)
	_, err := c.RunSelect(context.Background(), "http://worker-1", "not-a-plan")
	assert.Error(t, err)
}
