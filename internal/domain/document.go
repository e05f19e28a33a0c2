package domain

import "time"

// DocumentInfo is the registry entry for one successfully ingested document.
type DocumentInfo struct {
	ID         string
	Filename   string
	ChunkCount int
	CreatedAt  time.Time
}
