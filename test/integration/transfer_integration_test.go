//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseboard/casewire/internal/api"
	"github.com/caseboard/casewire/internal/model"
	"github.com/caseboard/casewire/internal/server"
	"github.com/caseboard/casewire/internal/snapshot"
	"github.com/caseboard/casewire/internal/stream"
)

// startBackend runs the stub backend in-process unless CASEWIRE_API_URL
// points at an external casewired.
func startBackend(t *testing.T, maxBodyBytes int64) string {
	t.Helper()
	_ = godotenv.Load("../../.env")

	if url := os.Getenv("CASEWIRE_API_URL"); url != "" {
		return url
	}
	ts := httptest.NewServer(server.NewServer(maxBodyBytes).SetupRouter())
	t.Cleanup(ts.Close)
	return ts.URL
}

func listSnapshotIDs(t *testing.T, baseURL string) []string {
	t.Helper()
	resp, err := http.Get(baseURL + "/api/snapshots")
	require.NoError(t, err)
	defer resp.Body.Close()

	var listing struct {
		SnapshotIDs []string `json:"snapshot_ids"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	return listing.SnapshotIDs
}

func bigSnapshot(nodes int) *model.Snapshot {
	snap := &model.Snapshot{
		Name:        "integration run",
		Notes:       "full transfer round trip",
		CaseID:      "case-integration",
		CaseVersion: 3,
		CaseName:    "Harbor Inquiry",
		AIOverview:  "A dense graph with a long paper trail.",
		Overview:    json.RawMessage(`{"sections":[{"title":"Findings","body":"see timeline"}]}`),
	}
	for i := 0; i < nodes; i++ {
		snap.Subgraph.Nodes = append(snap.Subgraph.Nodes, model.Node{
			ID:    fmt.Sprintf("n%d", i),
			Label: fmt.Sprintf("Entity %d", i),
			Type:  "person",
			Attributes: map[string]interface{}{
				"bio": strings.Repeat("background detail ", 10),
			},
		})
		if i > 0 && i%4 == 0 {
			snap.Subgraph.Links = append(snap.Subgraph.Links, model.Link{
				ID:     fmt.Sprintf("l%d", i),
				Source: "n0",
				Target: fmt.Sprintf("n%d", i),
				Label:  "knows",
			})
		}
	}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		snap.Timeline = append(snap.Timeline, model.TimelineEvent{
			ID:         fmt.Sprintf("t%d", i),
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
			Title:      fmt.Sprintf("Event %d", i),
		})
	}
	for i := 0; i < 20; i++ {
		snap.ChatHistory = append(snap.ChatHistory, model.ChatMessage{
			Role:      "user",
			Content:   fmt.Sprintf("question %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return snap
}

func TestChunkedTransferRoundTrip(t *testing.T) {
	const ceiling = 8192
	baseURL := startBackend(t, ceiling)
	client := api.NewClient(baseURL, os.Getenv("CASEWIRE_API_TOKEN"), 30*time.Second)

	snap := bigSnapshot(120)
	planner := snapshot.NewPlanner(client, snapshot.PlannerOptions{
		MaxPayloadBytes: ceiling,
		NodeBatchStart:  50,
		TimelineBatch:   10,
		ChatBatch:       10,
	})
	require.NoError(t, planner.Upload(context.Background(), snap))

	ids := listSnapshotIDs(t, baseURL)
	require.Len(t, ids, 1)

	got, err := client.GetSnapshot(context.Background(), ids[0])
	require.NoError(t, err)

	assert.Equal(t, snap.Name, got.Name)
	assert.Equal(t, snap.CaseID, got.CaseID)
	assert.Equal(t, snap.CaseVersion, got.CaseVersion)
	assert.Len(t, got.Subgraph.Nodes, len(snap.Subgraph.Nodes))
	assert.Len(t, got.Subgraph.Links, len(snap.Subgraph.Links))
	assert.Len(t, got.Timeline, len(snap.Timeline))
	assert.Len(t, got.ChatHistory, len(snap.ChatHistory))
	assert.Equal(t, snap.AIOverview, got.AIOverview)
	assert.JSONEq(t, string(snap.Overview), string(got.Overview))
}

func TestSingleShotTransfer(t *testing.T) {
	baseURL := startBackend(t, 0)
	client := api.NewClient(baseURL, os.Getenv("CASEWIRE_API_TOKEN"), 30*time.Second)

	snap := &model.Snapshot{Name: "small", CaseID: "case-small"}
	planner := snapshot.NewPlanner(client, snapshot.PlannerOptions{})
	require.NoError(t, planner.Upload(context.Background(), snap))

	ids := listSnapshotIDs(t, baseURL)
	require.Len(t, ids, 1)

	got, err := client.GetSnapshot(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "small", got.Name)
	assert.Empty(t, got.Subgraph.Nodes)
}

func TestSimilarityScanFlow(t *testing.T) {
	baseURL := startBackend(t, 0)
	client := api.NewClient(baseURL, os.Getenv("CASEWIRE_API_TOKEN"), 30*time.Second)

	var progress []int
	var complete stream.ScanComplete
	done := make(chan struct{})
	h := stream.Handlers{
		OnProgress: func(ev stream.Event) {
			var p stream.TypeProgress
			require.NoError(t, ev.Decode(&p))
			progress = append(progress, p.Processed)
		},
		OnComplete: func(ev stream.Event) {
			require.NoError(t, ev.Decode(&complete))
			close(done)
		},
		OnTransportError: func(err error) {
			t.Errorf("transport error: %v", err)
			close(done)
		},
	}

	cancel, err := stream.Start(context.Background(), client, model.ScanRequest{
		CaseID:      "case-scan",
		EntityTypes: []string{"person", "organization"},
		Threshold:   0.7,
	}, h)
	require.NoError(t, err)
	defer cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("scan did not complete")
	}

	assert.Equal(t, []int{20, 40, 20, 40}, progress)
	assert.Equal(t, 4, complete.TotalMatches)
}
