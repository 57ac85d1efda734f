package sample

import (
	"context"

	"github.com/lychee-technology/querycore"
	"github.com/lychee-technology/querycore/planner"
	"github.com/lychee-technology/querycore/qcerr"
)

// Query is the sample LogicalPlan shape: a single table scan with an
// optional column projection. Real deployments hand QueryExecutor a richer
// LogicalPlan (a parsed/optimized SQL plan); this core never inspects
// LogicalPlan's concrete type except through the injected Engine, so a
// sample Engine narrow enough to understand only Query is a legitimate
// implementation of the same interface.
type Query struct {
	Table      string
	Projection []string
	BatchSize  int64
}

// ScanOnlyEngine is a minimal querycore.Engine that understands a single
// logical operation: scan one table through a TableProvider. It stands in
// for an embedded SQL engine (DuckDB, DataFusion, ...) in this sample
// wiring; it performs no aggregation, filtering, or join planning of its
// own.
type ScanOnlyEngine struct{}

// NewScanOnlyEngine builds a ScanOnlyEngine.
func NewScanOnlyEngine() *ScanOnlyEngine { return &ScanOnlyEngine{} }

// BuildPhysicalPlan implements querycore.Engine.
func (e *ScanOnlyEngine) BuildPhysicalPlan(ctx context.Context, logical querycore.LogicalPlan, tableProvider querycore.TableProvider) (planner.Node, error) {
	q, ok := logical.(Query)
	if !ok {
		return nil, qcerr.New(qcerr.TypeEngine, qcerr.CodeEngineFailed, "ScanOnlyEngine only understands sample.Query logical plans")
	}
	return tableProvider.Scan(ctx, q.Table, q.Projection, q.BatchSize)
}
