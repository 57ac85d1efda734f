package querycore

import (
	"context"

	"github.com/lychee-technology/querycore/planner"
)

// Statistics is the stable, currently-empty seam a future cost-based
// optimizer would populate. The original TableProvider impl returns an
// all-None Statistics; this core carries the same shape without filling it
// in, since statistics-driven pruning is out of scope.
type Statistics struct {
	NumRows       *int64
	TotalByteSize *int64
}

// TableProvider resolves a logical table reference into a scan subtree —
// this is where C3's BuildIndexScan is wired in by a caller.
type TableProvider interface {
	Scan(ctx context.Context, tableName string, projection []string, batchSize int64) (planner.Node, error)
	Statistics() Statistics
}

// Engine is the embedded query engine collaborator: it turns a logical plan
// into a physical plan Node, consulting a TableProvider for leaf scans. This
// plays the role DataFusion's ExecutionContext plays in the original — this
// core depends on the interface, not on any one SQL engine, so a caller may
// back it with an embedded engine of their choice. Running the resulting
// Node to completion is QueryExecutor's job (see collect in executor.go),
// not the engine's, since draining ClusterSend's output partitions is this
// core's own concurrency concern.
type Engine interface {
	BuildPhysicalPlan(ctx context.Context, logical LogicalPlan, tableProvider TableProvider) (planner.Node, error)
}
