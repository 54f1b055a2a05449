package snapshot

import (
	"context"

	"github.com/caseboard/casewire/internal/model"
)

// MockUploader records uploads and fails on demand.
type MockUploader struct {
	SnapshotErr error // returned by PostSnapshot
	ChunkErr    error // returned by PostChunk at FailAtIndex
	FailAtIndex int   // chunk index that triggers ChunkErr

	PostedSnapshot *model.Snapshot
	Chunks         []*model.Chunk
}

func NewMockUploader() *MockUploader {
	return &MockUploader{FailAtIndex: -1}
}

func (m *MockUploader) PostSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if m.SnapshotErr != nil {
		return m.SnapshotErr
	}
	m.PostedSnapshot = snap
	return nil
}

func (m *MockUploader) PostChunk(ctx context.Context, chunk *model.Chunk) error {
	if m.ChunkErr != nil && chunk.ChunkIndex == m.FailAtIndex {
		return m.ChunkErr
	}
	c := *chunk
	m.Chunks = append(m.Chunks, &c)
	return nil
}
