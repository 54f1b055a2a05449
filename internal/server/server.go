// Package server is the casewired stub backend: an in-memory stand-in for
// the case-management API that the client library talks to. It receives
// whole and chunked snapshots, reassembles chunk sequences, and emits
// similarity-scan progress streams. It exists for local development and
// integration tests, not production.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caseboard/casewire/internal/model"
	"github.com/caseboard/casewire/internal/snapshot"
)

type Server struct {
	maxBodyBytes int64
	log          *slog.Logger

	mu         sync.Mutex
	assemblers map[string]*snapshot.Assembler
	snapshots  map[string]*model.Snapshot
}

func NewServer(maxBodyBytes int64) *Server {
	if maxBodyBytes <= 0 {
		maxBodyBytes = snapshot.DefaultMaxPayloadBytes
	}
	return &Server{
		maxBodyBytes: maxBodyBytes,
		log:          slog.Default().With("component", "server"),
		assemblers:   make(map[string]*snapshot.Assembler),
		snapshots:    make(map[string]*model.Snapshot),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/api/snapshots", s.SaveSnapshot)
	r.POST("/api/snapshots/chunks", s.SaveChunk)
	r.GET("/api/snapshots", s.ListSnapshots)
	r.GET("/api/snapshots/:snapshot_id", s.GetSnapshot)
	r.GET("/api/cases/:case_id/similarity", s.SimilarityScan)

	return r
}

// readBody reads the request body up to the configured ceiling. It mirrors
// the production transport's behavior of refusing oversized requests with
// 413, which is what drives the client's chunked fallback.
func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, s.maxBodyBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request"})
		return nil, false
	}
	if int64(len(body)) > s.maxBodyBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload too large"})
		return nil, false
	}
	return body, true
}

func (s *Server) SaveSnapshot(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	var snap model.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.snapshots[id] = &snap
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"status": "success", "snapshot_id": id})
}

func (s *Server) SaveChunk(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	var chunk model.Chunk
	if err := json.Unmarshal(body, &chunk); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	asm, exists := s.assemblers[chunk.SnapshotID]
	if !exists {
		if chunk.ChunkIndex != 0 {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Unknown snapshot for chunk %d", chunk.ChunkIndex)})
			return
		}
		asm = snapshot.NewAssembler()
		s.assemblers[chunk.SnapshotID] = asm
	}

	if err := asm.Apply(&chunk); err != nil {
		// A broken sequence is discarded wholesale; the client never
		// resumes a partial upload.
		delete(s.assemblers, chunk.SnapshotID)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if asm.Complete() {
		snap, err := asm.Snapshot()
		if err != nil {
			delete(s.assemblers, chunk.SnapshotID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assemble snapshot"})
			return
		}
		s.snapshots[chunk.SnapshotID] = snap
		delete(s.assemblers, chunk.SnapshotID)
		s.log.Info("snapshot assembled", "snapshot_id", chunk.SnapshotID, "chunks", chunk.ChunkIndex+1)
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "chunk_index": chunk.ChunkIndex})
}

func (s *Server) ListSnapshots(c *gin.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"snapshot_ids": ids})
}

func (s *Server) GetSnapshot(c *gin.Context) {
	id := c.Param("snapshot_id")

	s.mu.Lock()
	snap, ok := s.snapshots[id]
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Snapshot not found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SimilarityScan emits a scripted entity-similarity scan as an SSE stream:
// start, then per entity type a type_start / progress / type_complete
// cycle, then complete. A client disconnect mid-scan is reported as a
// cancelled event (best effort; the write may already be failing).
func (s *Server) SimilarityScan(c *gin.Context) {
	caseID := c.Param("case_id")
	entityTypes := c.QueryArray("entity_type")
	if len(entityTypes) == 0 {
		entityTypes = []string{"person", "organization", "location"}
	}
	delay := time.Duration(0)
	if ms, err := strconv.Atoi(c.Query("delay_ms")); err == nil && ms > 0 {
		delay = time.Duration(ms) * time.Millisecond
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	scanID := uuid.New().String()
	emit := func(evType string, payload interface{}) bool {
		select {
		case <-c.Request.Context().Done():
			writeEvent(c.Writer, "cancelled", gin.H{"scan_id": scanID})
			return false
		default:
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		return writeEvent(c.Writer, evType, payload) == nil
	}

	if !emit("start", gin.H{"scan_id": scanID, "case_id": caseID, "entity_types": entityTypes}) {
		return
	}

	totalMatches := 0
	for _, et := range entityTypes {
		total := 40
		if !emit("type_start", gin.H{"entity_type": et, "processed": 0, "total": total}) {
			return
		}
		for processed := 20; processed <= total; processed += 20 {
			if !emit("progress", gin.H{"entity_type": et, "processed": processed, "total": total}) {
				return
			}
		}
		totalMatches += 2
		if !emit("type_complete", gin.H{"entity_type": et, "processed": total, "total": total}) {
			return
		}
	}

	emit("complete", gin.H{"scan_id": scanID, "total_matches": totalMatches})
}

// writeEvent writes one record in the stream wire format:
// an "event:" line, a "data:" line with the JSON payload, a blank line.
func writeEvent(w gin.ResponseWriter, evType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evType, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
