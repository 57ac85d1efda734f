package sample

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrowTypeFromString(t *testing.T) {
	cases := map[string]arrow.DataType{
		"int64":        arrow.PrimitiveTypes.Int64,
		"uint64":       arrow.PrimitiveTypes.Uint64,
		"float64":      arrow.PrimitiveTypes.Float64,
		"utf8":         arrow.BinaryTypes.String,
		"string":       arrow.BinaryTypes.String,
		"bool":         arrow.FixedWidthTypes.Boolean,
		"boolean":      arrow.FixedWidthTypes.Boolean,
		"timestamp_ms": arrow.FixedWidthTypes.Timestamp_ms,
	}
	for name, want := range cases {
		got, err := arrowTypeFromString(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := arrowTypeFromString("not-a-type")
	assert.Error(t, err)
}

func sampleManifestTable() ManifestTable {
	return ManifestTable{
		Name: "orders",
		Index: ManifestIndex{
			Name: "orders_default",
			Columns: []ManifestColumn{
				{Name: "id", Type: "int64"},
				{Name: "amount", Type: "float64"},
			},
			SortKeyColumns: 1,
			JoinOn:         []string{"id"},
			Partitions: []ManifestPartition{
				{ID: 1, FileName: "orders-1.parquet", RowCount: 100, LocalPath: "/data/orders-1.parquet"},
				{ID: 2, FileName: "orders-2.parquet", RowCount: 50, LocalPath: "/data/orders-2.parquet"},
			},
		},
	}
}

func TestManifestTableSnapshotStableIDs(t *testing.T) {
	table := sampleManifestTable()

	snap1, remoteToLocal1, err := table.snapshot()
	require.NoError(t, err)
	snap2, _, err := table.snapshot()
	require.NoError(t, err)

	assert.Equal(t, snap1.Table.ID, snap2.Table.ID, "repeated snapshot() calls must mint the same table ID")
	assert.Equal(t, snap1.Index.ID, snap2.Index.ID, "repeated snapshot() calls must mint the same index ID")
	assert.Equal(t, "orders", snap1.Table.Name)
	assert.Len(t, snap1.Index.Columns, 2)
	assert.Equal(t, []string{"id"}, snap1.JoinOn)
	assert.Len(t, snap1.Partitions, 2)

	for _, p := range snap1.Partitions {
		local, ok := remoteToLocal1[p.Partition.RemoteName()]
		assert.True(t, ok)
		assert.NotEmpty(t, local)
	}
}

func TestManifestTableSnapshotUnknownColumnTypeErrors(t *testing.T) {
	table := sampleManifestTable()
	table.Index.Columns[0].Type = "bogus"

	_, _, err := table.snapshot()
	assert.Error(t, err)
}

func TestManifestTableLookup(t *testing.T) {
	m := &Manifest{Tables: []ManifestTable{sampleManifestTable()}}

	snap, remoteToLocal, found, err := m.Table("orders")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "orders", snap.Table.Name)
	assert.Len(t, remoteToLocal, 2)

	_, _, found, err = m.Table("missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	content := `{
		"tables": [
			{
				"name": "orders",
				"index": {
					"name": "orders_default",
					"columns": [{"name": "id", "type": "int64"}],
					"sortKeyColumns": 1,
					"partitions": [
						{"id": 1, "fileName": "orders-1.parquet", "rowCount": 10, "localPath": "/data/orders-1.parquet"}
					]
				}
			}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Tables, 1)
	assert.Equal(t, "orders", m.Tables[0].Name)
}

func TestLoadManifestMissingFileErrors(t *testing.T) {
	_, err := LoadManifest("/nonexistent/manifest.json")
	assert.Error(t, err)
}

func TestLoadManifestInvalidJSONErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadManifest(path)
	assert.Error(t, err)
}
