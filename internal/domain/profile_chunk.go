package domain

import "time"

// ProfileChunk is one sentence of a profile's content with its embedding.
// The set for a profile is always regenerated as a whole.
type ProfileChunk struct {
	ID         string
	ProfileID  string
	ChunkIndex int
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// ChunkMatch is a chunk returned by similarity search.
type ChunkMatch struct {
	ProfileID  string
	ChunkIndex int
	Content    string
	Similarity float64
}
