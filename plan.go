package querycore

import "github.com/lychee-technology/querycore/planner"

// LogicalPlan is an opaque handle to whatever logical-plan representation
// the injected Engine understands. SQL parsing and logical planning are
// external collaborators this core never inspects, so it carries this
// value through unexamined.
type LogicalPlan any

// Plan is this core's SerializedPlan: a logical plan plus the set of
// partition IDs one worker invocation is scoped to. It is cheap to copy —
// WithPartitionIDs returns a specialized value rather than mutating the
// receiver, so ClusterSend can narrow a shared plan per output partition
// without the callers racing on it.
type Plan struct {
	Logical               LogicalPlan
	PartitionIDsToExecute map[uint64]struct{}
}

// WithPartitionIDs returns a copy of p scoped to exactly the given
// partition IDs.
func (p Plan) WithPartitionIDs(ids map[uint64]struct{}) planner.SerializedPlan {
	clone := p
	clone.PartitionIDsToExecute = ids
	return clone
}
