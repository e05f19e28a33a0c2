package domain

// ChunkMetadata ties an index record back to its source document.
type ChunkMetadata struct {
	DocumentID  string
	ChunkIndex  int
	TotalChunks int
}

// IndexRecord is the persisted unit of the vector index: one embedded chunk
// with the chunk text retained for answer context. Immutable once written;
// re-ingestion appends new records rather than replacing.
type IndexRecord struct {
	Vector      []float32
	PageContent string
	Metadata    ChunkMetadata
}

// Match is a single search hit, best-first relative to its siblings.
type Match struct {
	Record IndexRecord
	Score  float64
}
