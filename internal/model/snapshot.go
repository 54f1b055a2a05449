// Package model holds the wire-level types shared by the transfer planner,
// the stream consumer, the API client, and the stub backend.
package model

import (
	"encoding/json"
	"time"
)

// Node is one entity in a snapshot's subgraph. Beyond the identifying
// fields the shape is open-ended; attribute payloads come from the backend
// and are carried through untouched.
type Node struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label,omitempty"`
	Type       string                 `json:"type,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Link connects two nodes in the subgraph.
type Link struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

type Subgraph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// TimelineEvent is one entry of the investigation timeline.
type TimelineEvent struct {
	ID          string    `json:"id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	NodeIDs     []string  `json:"node_ids,omitempty"`
}

// ChatMessage is one turn of the investigation chat transcript.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Citation points from the AI overview back into source material.
type Citation struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Snippet string `json:"snippet,omitempty"`
}

// Snapshot is a saved, point-in-time bundle of investigation state.
// Its serialized size is unbounded and unknown until serialization is
// attempted, which is what makes the chunked transfer path necessary.
type Snapshot struct {
	Name        string          `json:"name"`
	Notes       string          `json:"notes,omitempty"`
	CaseID      string          `json:"case_id,omitempty"`
	CaseVersion int             `json:"case_version,omitempty"`
	CaseName    string          `json:"case_name,omitempty"`
	Subgraph    Subgraph        `json:"subgraph"`
	Timeline    []TimelineEvent `json:"timeline,omitempty"`
	ChatHistory []ChatMessage   `json:"chat_history,omitempty"`
	AIOverview  string          `json:"ai_overview,omitempty"`
	Citations   []Citation      `json:"citations,omitempty"`
	// Overview is the structured analysis report. It is produced by the
	// backend and treated as opaque here.
	Overview json.RawMessage `json:"overview,omitempty"`
}

// Chunk is one unit of a size-bounded, ordered sequence used to transmit an
// oversized Snapshot. Indices are monotonic and gap-free; exactly one chunk
// in a sequence carries IsLastChunk, and it has the highest index.
type Chunk struct {
	SnapshotID  string    `json:"snapshot_id"`
	ChunkIndex  int       `json:"chunk_index"`
	ChunkData   ChunkData `json:"chunk_data"`
	IsLastChunk bool      `json:"is_last_chunk"`
}

// ChunkData is a partial Snapshot. Chunk 0 carries the scalar fields plus
// all links and the first node batch; later chunks carry exactly one of:
// a node batch, a timeline batch, a chat batch, or the overview.
type ChunkData struct {
	Name        string          `json:"name,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CaseID      string          `json:"case_id,omitempty"`
	CaseVersion int             `json:"case_version,omitempty"`
	CaseName    string          `json:"case_name,omitempty"`
	Subgraph    *Subgraph       `json:"subgraph,omitempty"`
	Timeline    []TimelineEvent `json:"timeline,omitempty"`
	ChatHistory []ChatMessage   `json:"chat_history,omitempty"`
	AIOverview  string          `json:"ai_overview,omitempty"`
	Citations   []Citation      `json:"citations,omitempty"`
	Overview    json.RawMessage `json:"overview,omitempty"`
}

// ScanRequest describes an entity-similarity scan to launch.
type ScanRequest struct {
	CaseID      string   `json:"case_id"`
	EntityTypes []string `json:"entity_types,omitempty"`
	Threshold   float64  `json:"threshold,omitempty"`
}
