package sample

import (
	"context"

	"github.com/lychee-technology/querycore"
	"github.com/lychee-technology/querycore/planner"
	"github.com/lychee-technology/querycore/qcerr"
)

// ManifestTableProvider resolves table scans against a Manifest loaded from
// disk, with every partition assumed to live at the local path the manifest
// names — the sample stand-in for a real metastore-plus-object-storage
// TableProvider.
type ManifestTableProvider struct {
	manifest           *Manifest
	workerPartitionIDs map[uint64]struct{}
}

// NewManifestTableProvider builds a provider over manifest. workerPartitionIDs
// scopes the provider to one worker's owned partitions; nil means "owns
// everything", matching BuildIndexScan's convention.
func NewManifestTableProvider(manifest *Manifest, workerPartitionIDs map[uint64]struct{}) *ManifestTableProvider {
	return &ManifestTableProvider{manifest: manifest, workerPartitionIDs: workerPartitionIDs}
}

// Scan implements querycore.TableProvider.
func (p *ManifestTableProvider) Scan(ctx context.Context, tableName string, projection []string, batchSize int64) (planner.Node, error) {
	snapshot, remoteToLocal, found, err := p.manifest.Table(tableName)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, qcerr.New(qcerr.TypeNotFound, qcerr.CodeNoPartitions, "unknown table: "+tableName)
	}
	return planner.BuildIndexScan(snapshot, p.workerPartitionIDs, remoteToLocal, planner.ScanOptions{
		Projection: projection,
		BatchSize:  batchSize,
	})
}

// Statistics implements querycore.TableProvider; this sample never computes
// row/byte estimates.
func (p *ManifestTableProvider) Statistics() querycore.Statistics {
	return querycore.Statistics{}
}
