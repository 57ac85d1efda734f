// Command router is a sample router-side binary: it loads a manifest and a
// wire config, wires a QueryExecutor over an HTTPCluster and a
// ManifestTableProvider, and serves one HTTP endpoint that runs a table
// query across whatever workers the config names.
package main

import (
	"encoding/json"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/lychee-technology/querycore"
	"github.com/lychee-technology/querycore/sample"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	configPath := getEnv("QUERYCORE_CONFIG", "router.config.json")
	cfg, err := sample.LoadWireConfig(configPath)
	if err != nil {
		sugar.Fatalf("failed to load config: %v", err)
	}

	manifest, err := sample.LoadManifest(cfg.ManifestPath)
	if err != nil {
		sugar.Fatalf("failed to load manifest: %v", err)
	}

	cluster := sample.NewHTTPCluster(cfg.WorkerAddrs, nil)
	provider := sample.NewManifestTableProvider(manifest, nil)
	engine := sample.NewScanOnlyEngine()
	executor := querycore.NewQueryExecutor(engine, cluster, &cfg.Core)

	mux := http.NewServeMux()
	mux.HandleFunc("/query", handleQuery(executor, provider))

	sugar.Infow("starting router", "listenAddr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		sugar.Fatalf("router server error: %v", err)
	}
}

type queryRequest struct {
	Table      string   `json:"table"`
	Projection []string `json:"projection"`
	BatchSize  int64    `json:"batchSize"`
}

func handleQuery(executor *querycore.QueryExecutor, provider *sample.ManifestTableProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		plan := querycore.Plan{Logical: sample.Query{
			Table:      req.Table,
			Projection: req.Projection,
			BatchSize:  req.BatchSize,
		}}

		df, err := executor.ExecuteRouterPlan(r.Context(), plan, provider)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(df); err != nil {
			zap.S().Errorw("failed to encode response", "error", err)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
