package planner

import "github.com/lychee-technology/querycore/qcerr"

// splitPredicate decides whether a node is the point at which the router
// plan is split: the node itself and everything above it stay on the
// router, everything below it is pushed to workers via ClusterSend.
type splitPredicate func(Node) bool

// firstMatchingPredicate picks the split point for one subtree: the first
// of HashAggregate/Sort/GlobalLimit present anywhere in it, or — failing
// that — the subtree's own root. Because this is re-derived independently
// for every subtree RouterSplit recurses into, a tree with several
// independent branches that contain none of HashAggregate/Sort/GlobalLimit
// still ends up split at each of their own roots (effectively "at every
// leaf group"), even though any single call's fallback predicate matches
// unconditionally.
func firstMatchingPredicate(plan Node) splitPredicate {
	switch {
	case ContainsKind(plan, KindHashAggregate):
		return func(n Node) bool { return n.Kind() == KindHashAggregate }
	case ContainsKind(plan, KindSort):
		return func(n Node) bool { return n.Kind() == KindSort }
	case ContainsKind(plan, KindGlobalLimit):
		return func(n Node) bool { return n.Kind() == KindGlobalLimit }
	default:
		return func(Node) bool { return true }
	}
}

// RouterSplit is C5's router-side entry point: it rewrites plan so that the
// portion below the first HashAggregate/Sort/GlobalLimit (or, failing that,
// the whole plan) is replaced with a ClusterSend wrapped in a Merge, ready
// to fan out to workers.
func RouterSplit(plan Node, sp SerializedPlan, cluster Cluster, availableNodes []string) (Node, error) {
	return routerSplitAt(plan, sp, cluster, availableNodes, firstMatchingPredicate(plan))
}

func routerSplitAt(plan Node, sp SerializedPlan, cluster Cluster, availableNodes []string, pred splitPredicate) (Node, error) {
	if pred(plan) {
		return wrapWithClusterSend(plan, sp, cluster, availableNodes, plan.Children())
	}
	children := plan.Children()
	newChildren := make([]Node, len(children))
	for i, c := range children {
		// Each child's own subtree re-derives its split predicate from
		// scratch — see firstMatchingPredicate's doc comment.
		nc, err := RouterSplit(c, sp, cluster, availableNodes)
		if err != nil {
			return nil, err
		}
		newChildren[i] = nc
	}
	return plan.WithNewChildren(newChildren)
}

// wrapWithClusterSend replaces plan's children with a single ClusterSend
// (wrapped in a Merge so downstream operators see one partition), scoped to
// every index snapshot found in plan's subtree grouped by union-branch. If
// no index snapshot is found at all (the subtree never scans anything),
// plan's child is replaced with an empty relation instead — matching the
// original's EmptyExec fallback, including that the replacement uses
// children[0]'s schema rather than plan's own.
func wrapWithClusterSend(plan Node, sp SerializedPlan, cluster Cluster, availableNodes []string, children []Node) (Node, error) {
	if len(children) != 1 {
		panic(qcerr.Invariant(qcerr.CodeUnsupportedNode,
			"only one child is expected for a router split point, got %d", len(children)))
	}
	groups := UnionSnapshotGroups(plan)
	if len(groups) == 0 {
		empty := NewEmptyRelationNode(children[0].Schema())
		return plan.WithNewChildren([]Node{empty})
	}
	clusterSend := NewClusterSendNode(children[0].Schema(), cluster, sp, availableNodes, groups)
	return plan.WithNewChildren([]Node{NewMergeNode(clusterSend)})
}

// WorkerSplit is C5's worker-side entry point: it drops everything above
// the first HashAggregate/Sort/GlobalLimit (or, failing that, the whole
// plan's root), returning only the subtree below it — the part of the plan
// a worker actually needs to run once the router has taken over
// aggregation/sort/limit.
func WorkerSplit(plan Node) Node {
	return workerSplitAt(plan, firstMatchingPredicate(plan))
}

func workerSplitAt(plan Node, pred splitPredicate) Node {
	children := plan.Children()
	if len(children) != 1 {
		panic(qcerr.Invariant(qcerr.CodeUnsupportedNode,
			"only one child is expected for a worker split point, got %d", len(children)))
	}
	if pred(plan) {
		return children[0]
	}
	return WorkerSplit(children[0])
}
