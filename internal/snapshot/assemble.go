package snapshot

import (
	"fmt"

	"github.com/caseboard/casewire/internal/model"
)

// Assembler rebuilds a snapshot from its chunk sequence. Chunks must be
// applied in index order; later chunks only append array elements or fill
// fields not yet present, so replaying the full sequence reproduces the
// original snapshot.
type Assembler struct {
	snapshotID string
	next       int
	complete   bool
	snap       model.Snapshot
}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Apply merges one chunk into the accumulating snapshot. Out-of-order or
// cross-snapshot chunks are rejected; nothing is merged partially.
func (a *Assembler) Apply(chunk *model.Chunk) error {
	if a.complete {
		return fmt.Errorf("chunk %d received after terminal chunk", chunk.ChunkIndex)
	}
	if a.next == 0 {
		a.snapshotID = chunk.SnapshotID
	} else if chunk.SnapshotID != a.snapshotID {
		return fmt.Errorf("chunk belongs to snapshot %q, assembling %q", chunk.SnapshotID, a.snapshotID)
	}
	if chunk.ChunkIndex != a.next {
		return fmt.Errorf("chunk index %d out of order, expected %d", chunk.ChunkIndex, a.next)
	}

	data := chunk.ChunkData

	// Scalar fields arrive once (chunk 0) and are only filled, never
	// overwritten.
	if data.Name != "" {
		a.snap.Name = data.Name
	}
	if data.Notes != "" {
		a.snap.Notes = data.Notes
	}
	if data.CaseID != "" {
		a.snap.CaseID = data.CaseID
	}
	if data.CaseVersion != 0 {
		a.snap.CaseVersion = data.CaseVersion
	}
	if data.CaseName != "" {
		a.snap.CaseName = data.CaseName
	}
	if data.AIOverview != "" {
		a.snap.AIOverview = data.AIOverview
	}
	if len(data.Citations) > 0 {
		a.snap.Citations = append(a.snap.Citations, data.Citations...)
	}
	if data.Subgraph != nil {
		a.snap.Subgraph.Nodes = append(a.snap.Subgraph.Nodes, data.Subgraph.Nodes...)
		a.snap.Subgraph.Links = append(a.snap.Subgraph.Links, data.Subgraph.Links...)
	}
	if len(data.Timeline) > 0 {
		a.snap.Timeline = append(a.snap.Timeline, data.Timeline...)
	}
	if len(data.ChatHistory) > 0 {
		a.snap.ChatHistory = append(a.snap.ChatHistory, data.ChatHistory...)
	}
	if len(data.Overview) > 0 {
		a.snap.Overview = data.Overview
	}

	a.next++
	if chunk.IsLastChunk {
		a.complete = true
	}
	return nil
}

// SnapshotID returns the identifier of the sequence being assembled.
func (a *Assembler) SnapshotID() string {
	return a.snapshotID
}

// Complete reports whether the terminal chunk has been applied.
func (a *Assembler) Complete() bool {
	return a.complete
}

// Snapshot returns the reconstructed snapshot. It fails until the terminal
// chunk has arrived: a sequence missing is_last_chunk is incomplete and
// must be discarded, never treated as a finished snapshot.
func (a *Assembler) Snapshot() (*model.Snapshot, error) {
	if !a.complete {
		return nil, fmt.Errorf("snapshot %q is incomplete: terminal chunk not received", a.snapshotID)
	}
	snap := a.snap
	return &snap, nil
}
