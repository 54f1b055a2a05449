package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseboard/casewire/internal/model"
)

func TestAssemblerRejectsOutOfOrderChunk(t *testing.T) {
	asm := NewAssembler()

	err := asm.Apply(&model.Chunk{SnapshotID: "s1", ChunkIndex: 1})
	assert.Error(t, err, "a sequence must start at index 0")

	require.NoError(t, asm.Apply(&model.Chunk{SnapshotID: "s1", ChunkIndex: 0}))
	assert.Error(t, asm.Apply(&model.Chunk{SnapshotID: "s1", ChunkIndex: 2}), "index gaps are rejected")
	assert.Error(t, asm.Apply(&model.Chunk{SnapshotID: "s1", ChunkIndex: 0}), "replays are rejected")
}

func TestAssemblerRejectsForeignChunk(t *testing.T) {
	asm := NewAssembler()
	require.NoError(t, asm.Apply(&model.Chunk{SnapshotID: "s1", ChunkIndex: 0}))

	err := asm.Apply(&model.Chunk{SnapshotID: "s2", ChunkIndex: 1})
	assert.Error(t, err)
}

func TestAssemblerIncompleteSequenceIsNotASnapshot(t *testing.T) {
	asm := NewAssembler()
	require.NoError(t, asm.Apply(&model.Chunk{
		SnapshotID: "s1",
		ChunkIndex: 0,
		ChunkData:  model.ChunkData{Name: "partial"},
	}))

	// Without is_last_chunk the upload was aborted; the partial data must
	// never surface as a finished snapshot.
	assert.False(t, asm.Complete())
	_, err := asm.Snapshot()
	assert.Error(t, err)
}

func TestAssemblerRejectsChunkAfterTerminal(t *testing.T) {
	asm := NewAssembler()
	require.NoError(t, asm.Apply(&model.Chunk{SnapshotID: "s1", ChunkIndex: 0, IsLastChunk: true}))

	assert.True(t, asm.Complete())
	assert.Error(t, asm.Apply(&model.Chunk{SnapshotID: "s1", ChunkIndex: 1}))
}

func TestAssemblerMergesSections(t *testing.T) {
	asm := NewAssembler()

	require.NoError(t, asm.Apply(&model.Chunk{
		SnapshotID: "s1",
		ChunkIndex: 0,
		ChunkData: model.ChunkData{
			Name:     "merge-test",
			CaseID:   "case-7",
			Subgraph: &model.Subgraph{Nodes: []model.Node{{ID: "n0"}}, Links: []model.Link{{ID: "l0", Source: "n0", Target: "n1"}}},
		},
	}))
	require.NoError(t, asm.Apply(&model.Chunk{
		SnapshotID: "s1",
		ChunkIndex: 1,
		ChunkData:  model.ChunkData{Subgraph: &model.Subgraph{Nodes: []model.Node{{ID: "n1"}}, Links: []model.Link{}}},
	}))
	require.NoError(t, asm.Apply(&model.Chunk{
		SnapshotID:  "s1",
		ChunkIndex:  2,
		ChunkData:   model.ChunkData{Timeline: []model.TimelineEvent{{ID: "t0", Title: "Sighting"}}},
		IsLastChunk: true,
	}))

	snap, err := asm.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "merge-test", snap.Name)
	assert.Equal(t, "case-7", snap.CaseID)
	assert.Len(t, snap.Subgraph.Nodes, 2)
	assert.Len(t, snap.Subgraph.Links, 1)
	assert.Len(t, snap.Timeline, 1)
}
