package planner

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/lychee-technology/querycore/internal/telemetry"
	"github.com/lychee-technology/querycore/metastore"
	"github.com/lychee-technology/querycore/qcerr"
)

// SerializedPlan is the cheap-to-clone, serializable plan value ClusterSend
// hands to a remote worker. WithPartitionIDs narrows it to the partitions
// one output partition of ClusterSend is responsible for, without mutating
// the shared original — supplementing the distillation's abstract
// "specialize per output partition" description with the original's actual
// with_partition_id_to_execute method shape.
type SerializedPlan interface {
	WithPartitionIDs(ids map[uint64]struct{}) SerializedPlan
}

// Cluster is the transport collaborator ClusterSend drives: it reports
// which worker nodes are available and runs a specialized plan on one of
// them, returning the record batches it produced.
type Cluster interface {
	AvailableNodes(ctx context.Context) ([]string, error)
	RunSelect(ctx context.Context, node string, plan SerializedPlan) ([]arrow.Record, error)
}

// ClusterSendNode is C6: a leaf node whose output partitions correspond,
// one-to-one, to an element of the cartesian product of the partition sets
// contributed by each snapshot group. Executing one output partition runs
// the scoped plan remotely and replays its result batches locally. The Go
// analog of ClusterSendExec.
type ClusterSendNode struct {
	schema         *arrow.Schema
	partitions     [][]metastore.Partition
	cluster        Cluster
	availableNodes []string
	serializedPlan SerializedPlan
}

// NewClusterSendNode builds a ClusterSendNode whose output partitions are
// the cartesian product of the partition sets each SnapshotGroup
// contributes — one combination per group member drawn from every group,
// mirroring itertools::multi_cartesian_product over the per-group
// partition lists.
func NewClusterSendNode(schema *arrow.Schema, cluster Cluster, serializedPlan SerializedPlan, availableNodes []string, groups []SnapshotGroup) *ClusterSendNode {
	toMultiply := make([][]metastore.Partition, len(groups))
	for i, group := range groups {
		var parts []metastore.Partition
		for _, snapshot := range group {
			for _, ps := range snapshot.Partitions {
				parts = append(parts, ps.Partition)
			}
		}
		toMultiply[i] = parts
	}
	return &ClusterSendNode{
		schema:         schema,
		partitions:     cartesianProduct(toMultiply),
		cluster:        cluster,
		availableNodes: availableNodes,
		serializedPlan: serializedPlan,
	}
}

func (n *ClusterSendNode) Kind() Kind            { return KindClusterSend }
func (n *ClusterSendNode) Schema() *arrow.Schema { return n.schema }
func (n *ClusterSendNode) OutputPartitioning() Partitioning {
	return Partitioning{Count: len(n.partitions)}
}
func (n *ClusterSendNode) Children() []Node { return nil }

func (n *ClusterSendNode) WithNewChildren(children []Node) (Node, error) {
	if len(children) != 0 {
		panic(qcerr.Invariant(qcerr.CodeUnsupportedNode, "ClusterSendNode is expected to be a leaf node"))
	}
	clone := *n
	return &clone, nil
}

func (n *ClusterSendNode) Execute(ctx context.Context, partition int) (RecordBatchStream, error) {
	if partition < 0 || partition >= len(n.partitions) {
		return nil, qcerr.Newf(qcerr.TypeInvariant, qcerr.CodeUnsupportedNode,
			"ClusterSendNode: partition %d out of range [0,%d)", partition, len(n.partitions))
	}
	ids := make(map[uint64]struct{}, len(n.partitions[partition]))
	for _, p := range n.partitions[partition] {
		ids[p.ID] = struct{}{}
	}
	specialized := n.serializedPlan.WithPartitionIDs(ids)

	if len(n.availableNodes) == 0 {
		return nil, qcerr.New(qcerr.TypeTransport, qcerr.CodeClusterSendFailed, "no available worker nodes")
	}
	// TODO: find node by partition instead of always targeting the first.
	target := n.availableNodes[0]

	telemetry.EmitPartitionFanout(ctx, len(n.partitions))
	records, err := n.cluster.RunSelect(ctx, target, specialized)
	if err != nil {
		return nil, qcerr.New(qcerr.TypeTransport, qcerr.CodeClusterSendFailed,
			"cluster send to "+target).WithCause(err)
	}
	return &memoryStream{records: records}, nil
}

// cartesianProduct returns the cartesian product of the given slices,
// materialized eagerly. Partition counts are bounded by metastore-held
// partition lists, not user data, so eager materialization (matching
// itertools::multi_cartesian_product) is acceptable.
func cartesianProduct(sets [][]metastore.Partition) [][]metastore.Partition {
	if len(sets) == 0 {
		return nil
	}
	result := [][]metastore.Partition{{}}
	for _, set := range sets {
		var next [][]metastore.Partition
		for _, combo := range result {
			for _, item := range set {
				extended := make([]metastore.Partition, len(combo), len(combo)+1)
				copy(extended, combo)
				extended = append(extended, item)
				next = append(next, extended)
			}
		}
		result = next
	}
	return result
}

// memoryStream replays a fixed, already-materialized slice of record
// batches — the Go analog of wrapping ClusterSendExec's remote result in a
// MemoryExec.
type memoryStream struct {
	records []arrow.Record
	idx     int
}

func (s *memoryStream) Next(ctx context.Context) (arrow.Record, error) {
	if s.idx >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.idx]
	s.idx++
	return rec, nil
}

func (s *memoryStream) Close() error {
	for _, r := range s.records[s.idx:] {
		r.Release()
	}
	return nil
}
