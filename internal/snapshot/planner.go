// Package snapshot implements the chunked transfer of oversized snapshots:
// planning a snapshot into a size-bounded chunk sequence, uploading it
// strictly in order, and reassembling the sequence on the receiving side.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/caseboard/casewire/internal/api"
	"github.com/caseboard/casewire/internal/model"
)

const (
	// DefaultMaxPayloadBytes is the per-request size ceiling. It mirrors the
	// backend's request body limit, so a payload passing this check is
	// normally accepted by the transport too.
	DefaultMaxPayloadBytes = 4 << 20

	// DefaultNodeBatchStart is the node count tried first for each node
	// chunk; the planner halves it when a candidate chunk is too large.
	DefaultNodeBatchStart = 1000

	DefaultTimelineBatch = 500
	DefaultChatBatch     = 200

	// DefaultMaxRetries caps consecutive halvings for a single chunk.
	DefaultMaxRetries = 10
)

// Uploader is the transport the planner sends through. *api.Client
// implements it; tests substitute a mock.
type Uploader interface {
	PostSnapshot(ctx context.Context, snap *model.Snapshot) error
	PostChunk(ctx context.Context, chunk *model.Chunk) error
}

type PlannerOptions struct {
	MaxPayloadBytes int
	NodeBatchStart  int
	TimelineBatch   int
	ChatBatch       int
	MaxRetries      int
}

// Planner uploads snapshots, transparently falling back from a single
// request to an ordered chunk sequence when size demands it.
type Planner struct {
	uploader Uploader
	opts     PlannerOptions

	// marshal is swappable so tests can simulate a payload that never fits.
	marshal func(v interface{}) ([]byte, error)
	log     *slog.Logger
}

func NewPlanner(uploader Uploader, opts PlannerOptions) *Planner {
	if opts.MaxPayloadBytes <= 0 {
		opts.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if opts.NodeBatchStart <= 0 {
		opts.NodeBatchStart = DefaultNodeBatchStart
	}
	if opts.TimelineBatch <= 0 {
		opts.TimelineBatch = DefaultTimelineBatch
	}
	if opts.ChatBatch <= 0 {
		opts.ChatBatch = DefaultChatBatch
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}

	return &Planner{
		uploader: uploader,
		opts:     opts,
		marshal:  json.Marshal,
		log:      slog.Default().With("component", "snapshot"),
	}
}

// Upload sends the snapshot, whole if it fits, chunked otherwise.
//
// The whole-payload path is the common case: serialize, check the ceiling,
// send. A size rejection there (local or a server 413) is recoverable and
// switches to chunked mode. In chunked mode any non-size transport failure
// aborts the transfer (*TransferAbortedError); a batch that cannot be
// shrunk below the ceiling is fatal (*OversizedElementError).
func (p *Planner) Upload(ctx context.Context, snap *model.Snapshot) error {
	whole, err := p.marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	if len(whole) <= p.opts.MaxPayloadBytes {
		err := p.uploader.PostSnapshot(ctx, snap)
		if err == nil {
			return nil
		}
		if !errors.Is(err, api.ErrPayloadTooLarge) {
			return err
		}
		p.log.Info("single-shot upload rejected for size, falling back to chunks", "bytes", len(whole))
	} else {
		p.log.Info("snapshot exceeds payload ceiling, uploading in chunks",
			"bytes", len(whole), "ceiling", p.opts.MaxPayloadBytes)
	}

	return p.uploadChunked(ctx, snap)
}

func (p *Planner) uploadChunked(ctx context.Context, snap *model.Snapshot) error {
	snapshotID := uuid.New().String()
	nodes := snap.Subgraph.Nodes
	hasOverview := len(snap.Overview) > 0

	index := 0
	acked := 0

	send := func(data model.ChunkData, last bool) error {
		chunk := &model.Chunk{
			SnapshotID:  snapshotID,
			ChunkIndex:  index,
			ChunkData:   data,
			IsLastChunk: last,
		}
		if err := p.uploader.PostChunk(ctx, chunk); err != nil {
			return &TransferAbortedError{ChunkIndex: index, Acked: acked, Err: err}
		}
		index++
		acked++
		return nil
	}

	// 1. Node chunks. Chunk 0 additionally carries the scalar metadata and
	// the entire links array (links are small relative to nodes and are
	// never split). Each candidate batch is serialized and halved until it
	// fits, within the retry budget.
	batch := p.opts.NodeBatchStart
	cursor := 0
	first := true
	for first || cursor < len(nodes) {
		retries := 0
		for {
			count := min(batch, len(nodes)-cursor)
			data := model.ChunkData{
				Subgraph: &model.Subgraph{Nodes: nodes[cursor : cursor+count], Links: []model.Link{}},
			}
			if first {
				data = chunkZero(snap, nodes[cursor:cursor+count])
			}

			probe := model.Chunk{SnapshotID: snapshotID, ChunkIndex: index, ChunkData: data}
			buf, err := p.marshal(&probe)
			if err != nil {
				return fmt.Errorf("failed to serialize chunk %d: %w", index, err)
			}
			if len(buf) <= p.opts.MaxPayloadBytes {
				last := cursor+count >= len(nodes) &&
					len(snap.Timeline) == 0 && len(snap.ChatHistory) == 0 && !hasOverview
				if err := send(data, last); err != nil {
					return err
				}
				cursor += count
				batch = p.opts.NodeBatchStart // reset for the next chunk
				first = false
				break
			}

			retries++
			if retries >= p.opts.MaxRetries || count <= 1 {
				return &OversizedElementError{Section: "nodes", ChunkIndex: index, BatchSize: count}
			}
			batch = max(count/2, 1)
			p.log.Debug("chunk too large, halving node batch",
				"chunk_index", index, "bytes", len(buf), "next_batch", batch)
		}
	}

	// 2. Timeline entries in fixed-size batches.
	for cur := 0; cur < len(snap.Timeline); cur += p.opts.TimelineBatch {
		end := min(cur+p.opts.TimelineBatch, len(snap.Timeline))
		last := end >= len(snap.Timeline) && len(snap.ChatHistory) == 0 && !hasOverview
		if err := send(model.ChunkData{Timeline: snap.Timeline[cur:end]}, last); err != nil {
			return err
		}
	}

	// 3. Chat history in fixed-size batches.
	for cur := 0; cur < len(snap.ChatHistory); cur += p.opts.ChatBatch {
		end := min(cur+p.opts.ChatBatch, len(snap.ChatHistory))
		last := end >= len(snap.ChatHistory) && !hasOverview
		if err := send(model.ChunkData{ChatHistory: snap.ChatHistory[cur:end]}, last); err != nil {
			return err
		}
	}

	// 4. Final overview chunk, if present.
	if hasOverview {
		if err := send(model.ChunkData{Overview: snap.Overview}, true); err != nil {
			return err
		}
	}

	p.log.Info("chunked upload complete", "snapshot_id", snapshotID, "chunks", acked)
	return nil
}

// chunkZero builds the first chunk's payload: all scalar metadata, the full
// links array, and the initial node batch.
func chunkZero(snap *model.Snapshot, nodes []model.Node) model.ChunkData {
	return model.ChunkData{
		Name:        snap.Name,
		Notes:       snap.Notes,
		CaseID:      snap.CaseID,
		CaseVersion: snap.CaseVersion,
		CaseName:    snap.CaseName,
		AIOverview:  snap.AIOverview,
		Citations:   snap.Citations,
		Subgraph:    &model.Subgraph{Nodes: nodes, Links: snap.Subgraph.Links},
	}
}
