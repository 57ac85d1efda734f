// Package telemetry is a lightweight, swappable metrics hook layer for the
// query execution core, mirroring the no-op-emitter-by-default pattern the
// rest of this codebase uses for observability: callers may register a real
// metrics backend via RegisterEmitter, and everything works with a no-op
// until they do.
package telemetry

import (
	"context"
	"sync"
)

type emitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	mu   sync.Mutex
	impl emitter = func(ctx context.Context, name string, labels map[string]string, value any) {
		// noop by default
	}
)

// RegisterEmitter installs fn as the metrics sink. Passing nil restores the
// no-op default.
func RegisterEmitter(fn emitter) {
	mu.Lock()
	defer mu.Unlock()
	if fn == nil {
		impl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	impl = fn
}

func emit(ctx context.Context, name string, labels map[string]string, value any) {
	mu.Lock()
	fn := impl
	mu.Unlock()
	fn(ctx, name, labels, value)
}

// EmitQueryLatency records end-to-end wall time for a router or worker
// query, in milliseconds.
// name: "querycore_query_latency_ms" with label {"role": "router"|"worker"}
func EmitQueryLatency(ctx context.Context, role string, ms int64) {
	emit(ctx, "querycore_query_latency_ms", map[string]string{"role": role}, ms)
}

// EmitRowCount records the number of rows a query produced.
// name: "querycore_query_row_count" with label {"role": "router"|"worker"}
func EmitRowCount(ctx context.Context, role string, rows int64) {
	emit(ctx, "querycore_query_row_count", map[string]string{"role": role}, rows)
}

// EmitPartitionFanout records how many output partitions ClusterSend (C6)
// produced for a query, one data point per ClusterSendNode.Execute call (so
// once per output partition executed).
// name: "querycore_clustersend_fanout" with no labels
func EmitPartitionFanout(ctx context.Context, count int) {
	emit(ctx, "querycore_clustersend_fanout", nil, count)
}
