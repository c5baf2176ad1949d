package audio

import (
	"fmt"
	"sync"
	"time"
)

// Chunk is a single piece of encoded audio delivered by a capture backend.
type Chunk struct {
	Sequence  uint32
	Data      []byte
	Timestamp time.Time
}

// ChunkBuffer accumulates capture chunks in sequence order and assembles
// them into a single artifact when recording stops.
type ChunkBuffer struct {
	mimeType string

	data        []byte
	lastSeq     uint32
	totalChunks uint32
	lastUpdate  time.Time

	mu sync.RWMutex
}

// ChunkBufferStats represents buffer statistics for monitoring
type ChunkBufferStats struct {
	TotalChunks  uint32 `json:"total_chunks"`
	TotalBytes   int    `json:"total_bytes"`
	LastSequence uint32 `json:"last_sequence"`
}

// NewChunkBuffer creates a buffer for chunks of the given MIME type.
func NewChunkBuffer(mimeType string) *ChunkBuffer {
	return &ChunkBuffer{
		mimeType:   mimeType,
		data:       make([]byte, 0, 64*1024),
		lastUpdate: time.Now(),
	}
}

// Add appends a chunk. Chunks must arrive in sequence order; capture
// backends deliver them that way, so an out-of-order chunk is an error.
func (b *ChunkBuffer) Add(chunk Chunk) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(chunk.Data) == 0 {
		return fmt.Errorf("empty chunk: seq=%d", chunk.Sequence)
	}

	if b.totalChunks > 0 && chunk.Sequence <= b.lastSeq {
		return fmt.Errorf("out-of-order chunk: seq=%d, lastSeq=%d", chunk.Sequence, b.lastSeq)
	}

	b.data = append(b.data, chunk.Data...)
	b.lastSeq = chunk.Sequence
	b.totalChunks++
	b.lastUpdate = time.Now()

	return nil
}

// Assemble returns the accumulated chunks as a single artifact.
func (b *ChunkBuffer) Assemble() (Artifact, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.data) == 0 {
		return Artifact{}, fmt.Errorf("no audio data collected")
	}

	data := make([]byte, len(b.data))
	copy(data, b.data)

	return Artifact{Data: data, MIME: b.mimeType}, nil
}

// Reset discards all accumulated data so the buffer can be reused.
func (b *ChunkBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = b.data[:0]
	b.lastSeq = 0
	b.totalChunks = 0
	b.lastUpdate = time.Now()
}

// Size returns the number of accumulated bytes.
func (b *ChunkBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// MIME returns the MIME type the buffer was created for.
func (b *ChunkBuffer) MIME() string {
	return b.mimeType
}

// GetLastUpdate returns the time of the last buffer update
func (b *ChunkBuffer) GetLastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate
}

// GetStats returns current buffer statistics
func (b *ChunkBuffer) GetStats() ChunkBufferStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return ChunkBufferStats{
		TotalChunks:  b.totalChunks,
		TotalBytes:   len(b.data),
		LastSequence: b.lastSeq,
	}
}
