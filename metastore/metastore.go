// Package metastore models the read-only row accessors the query execution
// core consumes: tables, indexes, partitions, chunks, and the
// snapshot/join grouping the planner needs to build scans. The core never
// opens a connection to the system that actually owns this data — it is
// handed fully-resolved values, matching the "metastore is an external,
// read-only collaborator" boundary.
package metastore

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"
)

// Column describes one column of an index's physical row layout.
type Column struct {
	Name string
	Type arrow.DataType
}

// Table identifies a logical table this core can scan.
type Table struct {
	ID   uuid.UUID
	Name string
}

// Index identifies a physical sort/projection of a Table's rows.
type Index struct {
	ID      uuid.UUID
	Name    string
	TableID uuid.UUID
	Columns []Column
	// SortKeyColumns is the number of leading Columns this index is
	// physically sorted by.
	SortKeyColumns int
}

// Partition is one horizontal slice of an Index's rows, stored under a
// content-addressed remote file name.
type Partition struct {
	ID         uint64
	IndexID    uuid.UUID
	FileName   string
	RowCount   int64
	Active     bool
}

// RemoteName returns the object-store key this partition's file is stored
// under.
func (p Partition) RemoteName() string {
	return p.FileName
}

// Chunk is an incremental, not-yet-compacted addition to a Partition.
type Chunk struct {
	ID         uint64
	PartitionID uint64
	FileName   string
	RowCount   int64
}

// RemoteName returns the object-store key this chunk's file is stored under.
func (c Chunk) RemoteName() string {
	return c.FileName
}

// PartitionSnapshot pairs a Partition with the Chunks layered on top of it
// that must also be scanned to see a consistent view of the partition.
type PartitionSnapshot struct {
	Partition Partition
	Chunks    []Chunk
}

// IndexSnapshot is everything C3 needs to build a scan over one index: the
// table/index identity, the partitions to read, and (for join-side
// snapshots) the columns the join is performed on.
type IndexSnapshot struct {
	Table      Table
	Index      Index
	Partitions []PartitionSnapshot
	// JoinOn is non-empty when this snapshot participates in a join and must
	// therefore be scanned in a sort-key-preserving order (MergeSort, not
	// Merge) so the join can assume sorted input.
	JoinOn []string
}
