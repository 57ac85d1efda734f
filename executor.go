// Package querycore is the facade: QueryExecutor ties the embedded engine,
// the planner package's C3-C6 components, and the row-value materialization
// surface together into the two entry points a router and a worker call.
package querycore

import (
	"context"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lychee-technology/querycore/internal/telemetry"
	"github.com/lychee-technology/querycore/planner"
	"github.com/lychee-technology/querycore/qcerr"
	"github.com/lychee-technology/querycore/rowvalue"
	"github.com/lychee-technology/querycore/typebridge"
)

// QueryExecutor is the Go analog of QueryExecutorImpl: it builds a physical
// plan via the injected Engine, splits it (C5), drives ClusterSend (C6) on
// the router or runs the worker-side remainder, and materializes the
// result.
type QueryExecutor struct {
	engine  Engine
	cluster planner.Cluster
	cfg     *Config
}

// NewQueryExecutor builds a QueryExecutor. cfg defaults to DefaultConfig()
// when nil.
func NewQueryExecutor(engine Engine, cluster planner.Cluster, cfg *Config) *QueryExecutor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &QueryExecutor{engine: engine, cluster: cluster, cfg: cfg}
}

// ExecuteRouterPlan runs plan on the router: it builds the physical plan,
// splits it at the first HashAggregate/Sort/GlobalLimit (C5), wraps the
// remainder in ClusterSend (C6), collects the result, and materializes it
// into a DataFrame (C1 reverse direction).
func (qe *QueryExecutor) ExecuteRouterPlan(ctx context.Context, plan Plan, tableProvider TableProvider) (*rowvalue.DataFrame, error) {
	physical, err := qe.engine.BuildPhysicalPlan(ctx, plan.Logical, tableProvider)
	if err != nil {
		return nil, qcerr.New(qcerr.TypeEngine, qcerr.CodeEngineFailed, "building router physical plan").WithCause(err)
	}

	availableNodes, err := qe.cluster.AvailableNodes(ctx)
	if err != nil {
		return nil, qcerr.New(qcerr.TypeTransport, qcerr.CodeClusterSendFailed, "listing available nodes").WithCause(err)
	}

	splitPlan, err := planner.RouterSplit(physical, plan, qe.cluster, availableNodes)
	if err != nil {
		return nil, qcerr.New(qcerr.TypeEngine, qcerr.CodeEngineFailed, "splitting router plan").WithCause(err)
	}

	if qe.cfg.Logging.TracePhysicalPlans {
		zap.S().Debugw("router query physical plan", "plan", planner.Describe(splitPlan))
	}

	start := time.Now()
	batches, collectErr := qe.collect(ctx, splitPlan)
	elapsed := time.Since(start)
	zap.S().Debugw("query data processing time", "elapsed", elapsed)

	if elapsed > qe.cfg.Logging.SlowQueryThreshold {
		zap.S().Warnw("slow query", "elapsed", elapsed)
		zap.S().Debugw("slow query physical plan", "elapsed", elapsed, "plan", planner.Describe(splitPlan))
	}
	if collectErr != nil {
		zap.S().Errorw("error query", "elapsed", elapsed, "error", collectErr)
		zap.S().Errorw("error query physical plan", "plan", planner.Describe(splitPlan))
		return nil, collectErr
	}

	cols, rows, err := typebridge.BatchToRows(batches)
	if err != nil {
		return nil, err
	}
	if qe.cfg.Metrics.Enabled {
		telemetry.EmitQueryLatency(ctx, "router", elapsed.Milliseconds())
		telemetry.EmitRowCount(ctx, "router", int64(len(rows)))
	}
	return &rowvalue.DataFrame{Columns: cols, Rows: rows}, nil
}

// ExecuteWorkerPlan runs plan on a worker: it builds the physical plan and
// runs only the subtree below the router's split point (C5 worker side),
// scoped to whatever partition files tableProvider resolves, returning the raw
// record batches for the router to collect over the wire (via batchcodec).
func (qe *QueryExecutor) ExecuteWorkerPlan(ctx context.Context, plan Plan, tableProvider TableProvider) ([]arrow.Record, error) {
	physical, err := qe.engine.BuildPhysicalPlan(ctx, plan.Logical, tableProvider)
	if err != nil {
		return nil, qcerr.New(qcerr.TypeEngine, qcerr.CodeEngineFailed, "building worker physical plan").WithCause(err)
	}

	workerPlan := planner.WorkerSplit(physical)

	if qe.cfg.Logging.TracePhysicalPlans {
		zap.S().Debugw("partition query physical plan", "plan", planner.Describe(workerPlan))
	}

	start := time.Now()
	batches, collectErr := qe.collect(ctx, workerPlan)
	elapsed := time.Since(start)
	zap.S().Debugw("partition query data processing time", "elapsed", elapsed)

	if elapsed > qe.cfg.Logging.SlowQueryThreshold || collectErr != nil {
		zap.S().Warnw("slow partition query", "elapsed", elapsed)
		zap.S().Debugw("slow partition query physical plan", "elapsed", elapsed, "plan", planner.Describe(workerPlan))
	}
	if collectErr != nil {
		zap.S().Errorw("error partition query", "elapsed", elapsed, "error", collectErr)
		zap.S().Errorw("error partition query physical plan", "plan", planner.Describe(workerPlan))
		return nil, collectErr
	}
	if qe.cfg.Metrics.Enabled {
		var rows int64
		for _, b := range batches {
			rows += b.NumRows()
		}
		telemetry.EmitQueryLatency(ctx, "worker", elapsed.Milliseconds())
		telemetry.EmitRowCount(ctx, "worker", rows)
	}
	return batches, nil
}

// collect drives every output partition of plan concurrently (one
// goroutine per partition index, via errgroup) and concatenates their
// record batches back in partition order.
func (qe *QueryExecutor) collect(ctx context.Context, plan planner.Node) ([]arrow.Record, error) {
	count := plan.OutputPartitioning().Count
	if count == 0 {
		return nil, nil
	}
	perPartition := make([][]arrow.Record, count)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			stream, err := plan.Execute(gctx, i)
			if err != nil {
				return err
			}
			defer stream.Close()
			for {
				rec, err := stream.Next(gctx)
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}
				perPartition[i] = append(perPartition[i], rec)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []arrow.Record
	for _, recs := range perPartition {
		out = append(out, recs...)
	}
	return out, nil
}
