package planner

import "github.com/lychee-technology/querycore/metastore"

// ContainsKind reports whether any node in the subtree rooted at n (n
// included) has the given Kind. Mirrors has_node<T>: a plain depth-first
// search, stopping at the first match.
func ContainsKind(n Node, kind Kind) bool {
	if n.Kind() == kind {
		return true
	}
	for _, c := range n.Children() {
		if ContainsKind(c, kind) {
			return true
		}
	}
	return false
}

// IndexSnapshots collects every IndexSnapshot reachable from an IndexScan
// node anywhere in the subtree, in left-to-right order. Mirrors
// index_snapshots_from_cube_table.
func IndexSnapshots(n Node) []metastore.IndexSnapshot {
	if scan, ok := n.(*IndexScanNode); ok {
		return []metastore.IndexSnapshot{scan.snapshot}
	}
	var out []metastore.IndexSnapshot
	for _, c := range n.Children() {
		out = append(out, IndexSnapshots(c)...)
	}
	return out
}

// SnapshotGroup is one element of the groups C6's cartesian product is
// built from: the index snapshots that must be read together as one unit
// (a Union's branches) or alone (everything else).
type SnapshotGroup []metastore.IndexSnapshot

// UnionSnapshotGroups walks the subtree rooted at n and returns one group
// per independent IndexScan/Union found, in the order encountered. Only a
// node tagged KindUnion flattens its children's snapshots into a single
// group; any other multi-child node (a join, say) is recursed into
// independently, so its two sides contribute two separate groups — which is
// exactly what makes C6 multiply them together. Mirrors
// union_snapshots_from_cube_table precisely, including that only Union
// triggers the flattening special case.
func UnionSnapshotGroups(n Node) []SnapshotGroup {
	if scan, ok := n.(*IndexScanNode); ok {
		return []SnapshotGroup{{scan.snapshot}}
	}
	if n.Kind() == KindUnion {
		var group SnapshotGroup
		for _, c := range n.Children() {
			group = append(group, IndexSnapshots(c)...)
		}
		return []SnapshotGroup{group}
	}
	var out []SnapshotGroup
	for _, c := range n.Children() {
		out = append(out, UnionSnapshotGroups(c)...)
	}
	return out
}
