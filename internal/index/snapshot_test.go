package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/askdoc/askdoc/internal/domain"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.idx")

	in := []domain.IndexRecord{
		record("doc-1", 0, "first chunk", 0.25, -1.5, 3.125),
		record("doc-1", 1, "second chunk", 0.1, 0.2, 0.3),
	}
	in[0].Metadata.TotalChunks = 2
	in[1].Metadata.TotalChunks = 2

	if err := saveSnapshot(path, 3, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	dim, out, err := loadSnapshot(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if dim != 3 {
		t.Errorf("dim = %d, want 3", dim)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d records, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].PageContent != in[i].PageContent {
			t.Errorf("record %d content = %q, want %q", i, out[i].PageContent, in[i].PageContent)
		}
		if out[i].Metadata != in[i].Metadata {
			t.Errorf("record %d metadata = %+v, want %+v", i, out[i].Metadata, in[i].Metadata)
		}
		for j := range in[i].Vector {
			if out[i].Vector[j] != in[i].Vector[j] {
				t.Errorf("record %d vector[%d] = %v, want bit-exact %v",
					i, j, out[i].Vector[j], in[i].Vector[j])
			}
		}
	}
}

func TestSnapshot_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "documents.idx")

	if err := saveSnapshot(path, 2, []domain.IndexRecord{
		record("doc-1", 0, "chunk", 1, 0),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "documents.idx" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("directory contents = %v, want only documents.idx", names)
	}
}

func TestSnapshot_CorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.idx")
	if err := os.WriteFile(path, []byte("not a snapshot"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, _, err := loadSnapshot(path); err == nil {
		t.Fatal("expected error for corrupt artifact")
	}
}
