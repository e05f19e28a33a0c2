package index

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/askdoc/askdoc/internal/domain"
)

// snapshotVersion guards the artifact format. Bump on incompatible change.
const snapshotVersion = 1

// snapshotRecord is the storage shape of one index record. Gob preserves
// float32 values bit-exactly, so vectors round-trip without loss.
type snapshotRecord struct {
	Vector      []float32
	PageContent string
	DocumentID  string
	ChunkIndex  int
	TotalChunks int
}

type snapshot struct {
	Version int
	Dim     int
	Records []snapshotRecord
}

func artifactExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// saveSnapshot writes the full record set to a temp file in the artifact
// directory and renames it into place, so a crash mid-write never leaves a
// truncated artifact behind.
func saveSnapshot(path string, dim int, records []domain.IndexRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create index directory: %w: %w", err, domain.ErrPersistence)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w: %w", err, domain.ErrPersistence)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	snap := snapshot{
		Version: snapshotVersion,
		Dim:     dim,
		Records: make([]snapshotRecord, len(records)),
	}
	for i, r := range records {
		snap.Records[i] = snapshotRecord{
			Vector:      r.Vector,
			PageContent: r.PageContent,
			DocumentID:  r.Metadata.DocumentID,
			ChunkIndex:  r.Metadata.ChunkIndex,
			TotalChunks: r.Metadata.TotalChunks,
		}
	}

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w: %w", err, domain.ErrPersistence)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w: %w", err, domain.ErrPersistence)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w: %w", err, domain.ErrPersistence)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace artifact: %w: %w", err, domain.ErrPersistence)
	}
	return nil
}

// loadSnapshot reads the artifact and reconstructs the record set.
func loadSnapshot(path string) (int, []domain.IndexRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("open artifact: %w: %w", err, domain.ErrPersistence)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return 0, nil, fmt.Errorf("decode snapshot: %w: %w", err, domain.ErrPersistence)
	}
	if snap.Version != snapshotVersion {
		return 0, nil, fmt.Errorf(
			"unsupported snapshot version %d (want %d): %w",
			snap.Version, snapshotVersion, domain.ErrPersistence,
		)
	}

	records := make([]domain.IndexRecord, len(snap.Records))
	for i, r := range snap.Records {
		records[i] = domain.IndexRecord{
			Vector:      r.Vector,
			PageContent: r.PageContent,
			Metadata: domain.ChunkMetadata{
				DocumentID:  r.DocumentID,
				ChunkIndex:  r.ChunkIndex,
				TotalChunks: r.TotalChunks,
			},
		}
	}
	return snap.Dim, records, nil
}
