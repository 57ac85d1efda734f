// Package sample provides a minimal, file-manifest-backed wiring of
// TableProvider, Engine, and Cluster — enough to stand up a working
// router/worker pair for demonstration and local testing, the way the
// teacher's cmd/server wires a Postgres-backed EntityManager from plain
// environment variables. Production deployments supply their own
// metastore-backed TableProvider and an embedded-engine-backed Engine.
package sample

import (
	"encoding/json"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"

	"github.com/lychee-technology/querycore/metastore"
	"github.com/lychee-technology/querycore/qcerr"
)

// ManifestColumn describes one column of a manifest index entry.
type ManifestColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ManifestPartition describes one active partition file.
type ManifestPartition struct {
	ID        uint64 `json:"id"`
	FileName  string `json:"fileName"`
	RowCount  int64  `json:"rowCount"`
	LocalPath string `json:"localPath"`
}

// ManifestIndex describes one table index and the partition files backing
// it.
type ManifestIndex struct {
	Name           string              `json:"name"`
	Columns        []ManifestColumn    `json:"columns"`
	SortKeyColumns int                 `json:"sortKeyColumns"`
	JoinOn         []string            `json:"joinOn"`
	Partitions     []ManifestPartition `json:"partitions"`
}

// ManifestTable describes one table and its default index.
type ManifestTable struct {
	Name  string        `json:"name"`
	Index ManifestIndex `json:"index"`
}

// Manifest is the sample config's view of the metastore: a flat JSON
// document naming every table's single default index and the local files
// backing its partitions, standing in for a real metastore service.
type Manifest struct {
	Tables []ManifestTable `json:"tables"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, qcerr.New(qcerr.TypeNotFound, qcerr.CodeNoPartitions, "reading manifest file").WithCause(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, qcerr.New(qcerr.TypeSerialization, qcerr.CodeSchemaMismatch, "parsing manifest JSON").WithCause(err)
	}
	return &m, nil
}

// snapshot builds the metastore.IndexSnapshot and remoteName->localPath map
// for one manifest table, minting stable UUIDs from the table/index names so
// repeated loads of the same manifest produce the same IDs.
func (t ManifestTable) snapshot() (metastore.IndexSnapshot, map[string]string, error) {
	cols := make([]metastore.Column, len(t.Index.Columns))
	for i, c := range t.Index.Columns {
		dt, err := arrowTypeFromString(c.Type)
		if err != nil {
			return metastore.IndexSnapshot{}, nil, err
		}
		cols[i] = metastore.Column{Name: c.Name, Type: dt}
	}

	tableID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("table:"+t.Name))
	indexID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("index:"+t.Name+"."+t.Index.Name))

	remoteToLocal := make(map[string]string, len(t.Index.Partitions))
	partitions := make([]metastore.PartitionSnapshot, len(t.Index.Partitions))
	for i, p := range t.Index.Partitions {
		part := metastore.Partition{
			ID:       p.ID,
			IndexID:  indexID,
			FileName: p.FileName,
			RowCount: p.RowCount,
			Active:   true,
		}
		remoteToLocal[part.RemoteName()] = p.LocalPath
		partitions[i] = metastore.PartitionSnapshot{Partition: part}
	}

	snapshot := metastore.IndexSnapshot{
		Table: metastore.Table{ID: tableID, Name: t.Name},
		Index: metastore.Index{
			ID:             indexID,
			Name:           t.Index.Name,
			TableID:        tableID,
			Columns:        cols,
			SortKeyColumns: t.Index.SortKeyColumns,
		},
		Partitions: partitions,
		JoinOn:     t.Index.JoinOn,
	}
	return snapshot, remoteToLocal, nil
}

// Table looks up one table's snapshot and remote-to-local map by name.
func (m *Manifest) Table(name string) (metastore.IndexSnapshot, map[string]string, bool, error) {
	for _, t := range m.Tables {
		if t.Name == name {
			snap, remoteToLocal, err := t.snapshot()
			return snap, remoteToLocal, true, err
		}
	}
	return metastore.IndexSnapshot{}, nil, false, nil
}

func arrowTypeFromString(name string) (arrow.DataType, error) {
	switch name {
	case "int64":
		return arrow.PrimitiveTypes.Int64, nil
	case "uint64":
		return arrow.PrimitiveTypes.Uint64, nil
	case "float64":
		return arrow.PrimitiveTypes.Float64, nil
	case "utf8", "string":
		return arrow.BinaryTypes.String, nil
	case "bool", "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "timestamp_ms":
		return arrow.FixedWidthTypes.Timestamp_ms, nil
	default:
		return nil, qcerr.New(qcerr.TypeInvariant, qcerr.CodeUnsupportedArrayType, "unknown manifest column type: "+name)
	}
}
