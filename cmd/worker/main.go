// Command worker is a sample worker-side binary: it loads the same manifest
// the router uses, wires a QueryExecutor with a no-op Cluster (workers never
// themselves fan out further), and serves the /execute endpoint HTTPCluster
// calls into.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/lychee-technology/querycore"
	"github.com/lychee-technology/querycore/planner"
	"github.com/lychee-technology/querycore/qcerr"
	"github.com/lychee-technology/querycore/sample"
)

// leafCluster is handed to a worker's QueryExecutor purely to satisfy the
// interface: a worker-side physical plan never contains a ClusterSendNode
// (C5's WorkerSplit discards everything above and including the split
// point), so AvailableNodes/RunSelect are never actually invoked.
type leafCluster struct{}

func (leafCluster) AvailableNodes(ctx context.Context) ([]string, error) {
	return nil, qcerr.New(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode, "a worker plan must not contain a ClusterSendNode")
}

func (leafCluster) RunSelect(ctx context.Context, node string, plan planner.SerializedPlan) ([]arrow.Record, error) {
	return nil, qcerr.New(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode, "a worker plan must not contain a ClusterSendNode")
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	configPath := getEnv("QUERYCORE_CONFIG", "worker.config.json")
	cfg, err := sample.LoadWireConfig(configPath)
	if err != nil {
		sugar.Fatalf("failed to load config: %v", err)
	}

	manifest, err := sample.LoadManifest(cfg.ManifestPath)
	if err != nil {
		sugar.Fatalf("failed to load manifest: %v", err)
	}

	engine := sample.NewScanOnlyEngine()
	executor := querycore.NewQueryExecutor(engine, leafCluster{}, &cfg.Core)

	mux := http.NewServeMux()
	mux.Handle("/execute", &sample.WorkerHandler{Executor: executor, Manifest: manifest})

	sugar.Infow("starting worker", "listenAddr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		sugar.Fatalf("worker server error: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
