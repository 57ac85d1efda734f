package sample

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/lychee-technology/querycore"
	"github.com/lychee-technology/querycore/batchcodec"
	"github.com/lychee-technology/querycore/planner"
	"github.com/lychee-technology/querycore/qcerr"
)

// wirePlan is the over-the-wire JSON shape of a querycore.Plan carrying a
// sample.Query logical plan, standing in for the real serialized-plan
// envelope a production RunSelect would ship (Arrow IPC for data,
// protobuf/JSON for the plan shape).
type wirePlan struct {
	Table        string   `json:"table"`
	Projection   []string `json:"projection"`
	BatchSize    int64    `json:"batchSize"`
	PartitionIDs []uint64 `json:"partitionIds"`
}

func toWirePlan(p querycore.Plan) (wirePlan, error) {
	q, ok := p.Logical.(Query)
	if !ok {
		return wirePlan{}, qcerr.New(qcerr.TypeSerialization, qcerr.CodeSchemaMismatch, "sample cluster only ships sample.Query logical plans")
	}
	ids := make([]uint64, 0, len(p.PartitionIDsToExecute))
	for id := range p.PartitionIDsToExecute {
		ids = append(ids, id)
	}
	return wirePlan{Table: q.Table, Projection: q.Projection, BatchSize: q.BatchSize, PartitionIDs: ids}, nil
}

func (w wirePlan) toPlan() querycore.Plan {
	var ids map[uint64]struct{}
	if w.PartitionIDs != nil {
		ids = make(map[uint64]struct{}, len(w.PartitionIDs))
		for _, id := range w.PartitionIDs {
			ids[id] = struct{}{}
		}
	}
	return querycore.Plan{
		Logical:               Query{Table: w.Table, Projection: w.Projection, BatchSize: w.BatchSize},
		PartitionIDsToExecute: ids,
	}
}

// HTTPCluster is the router-side planner.Cluster: it ships a plan to one of
// a fixed, statically-configured set of worker base URLs over HTTP and
// decodes the Arrow IPC response body back into record batches.
type HTTPCluster struct {
	workerAddrs []string
	client      *http.Client
}

// NewHTTPCluster builds an HTTPCluster targeting workerAddrs (base URLs,
// e.g. "http://worker-1:8081").
func NewHTTPCluster(workerAddrs []string, client *http.Client) *HTTPCluster {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPCluster{workerAddrs: workerAddrs, client: client}
}

// AvailableNodes implements planner.Cluster.
func (c *HTTPCluster) AvailableNodes(ctx context.Context) ([]string, error) {
	if len(c.workerAddrs) == 0 {
		return nil, qcerr.New(qcerr.TypeTransport, qcerr.CodeClusterSendFailed, "no worker addresses configured")
	}
	return c.workerAddrs, nil
}

// RunSelect implements planner.Cluster.
func (c *HTTPCluster) RunSelect(ctx context.Context, node string, plan planner.SerializedPlan) ([]arrow.Record, error) {
	qp, ok := plan.(querycore.Plan)
	if !ok {
		return nil, qcerr.New(qcerr.TypeSerialization, qcerr.CodeSchemaMismatch, "HTTPCluster expects a querycore.Plan")
	}
	wp, err := toWirePlan(qp)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(wp)
	if err != nil {
		return nil, qcerr.New(qcerr.TypeSerialization, qcerr.CodeSchemaMismatch, "marshaling wire plan").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, node+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, qcerr.New(qcerr.TypeTransport, qcerr.CodeClusterSendFailed, "building worker request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, qcerr.New(qcerr.TypeTransport, qcerr.CodeClusterSendFailed, "calling worker "+node).WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, qcerr.New(qcerr.TypeTransport, qcerr.CodeClusterSendFailed, "reading worker response").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, qcerr.Newf(qcerr.TypeTransport, qcerr.CodeClusterSendFailed,
			"worker %s returned status %d: %s", node, resp.StatusCode, string(respBody))
	}
	if len(respBody) == 0 {
		return nil, nil
	}

	return batchcodec.Decode(respBody)
}

// WorkerHandler serves one worker's /execute endpoint: it decodes a
// wirePlan, scopes a ManifestTableProvider to the requested partitions, runs
// ExecuteWorkerPlan, and streams the Arrow IPC-encoded result back.
type WorkerHandler struct {
	Executor *querycore.QueryExecutor
	Manifest *Manifest
}

func (h *WorkerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var wp wirePlan
	if err := json.NewDecoder(r.Body).Decode(&wp); err != nil {
		http.Error(w, "invalid plan body: "+err.Error(), http.StatusBadRequest)
		return
	}

	plan := wp.toPlan()
	var owned map[uint64]struct{}
	if plan.PartitionIDsToExecute != nil {
		owned = plan.PartitionIDsToExecute
	}
	provider := NewManifestTableProvider(h.Manifest, owned)

	batches, err := h.Executor.ExecuteWorkerPlan(r.Context(), plan, provider)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apache.arrow.stream")
	if len(batches) == 0 {
		// An empty result set (e.g. zero owned partitions) is not a codec
		// error — it's a valid empty response, so skip the encoder's
		// nonempty-input requirement and write nothing.
		return
	}
	encoded, err := batchcodec.Encode(batches)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(encoded)
}
