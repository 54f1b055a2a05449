package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseboard/casewire/internal/model"
)

func TestPostSnapshotSendsAuthAndBody(t *testing.T) {
	var gotAuth string
	var gotBody model.Snapshot
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "secret-token", 5*time.Second)
	err := c.PostSnapshot(context.Background(), &model.Snapshot{Name: "harbor"})

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "harbor", gotBody.Name)
}

func TestPostSnapshotMaps413ToPayloadTooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", 5*time.Second)
	err := c.PostSnapshot(context.Background(), &model.Snapshot{Name: "big"})

	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestPostChunkSurfacesServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"chunk index 2 out of order"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", 5*time.Second)
	err := c.PostChunk(context.Background(), &model.Chunk{ChunkIndex: 2})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPayloadTooLarge)
	assert.Contains(t, err.Error(), "409")
}

func TestSimilarityStreamPassesFilterParams(t *testing.T) {
	var gotQuery map[string][]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: start\ndata: {}\n\n"))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", 5*time.Second)
	body, err := c.SimilarityStream(context.Background(), "case-42", []string{"person", "location"}, 0.8)
	require.NoError(t, err)
	defer body.Close()

	assert.Equal(t, []string{"person", "location"}, gotQuery["entity_type"])
	assert.Equal(t, []string{"0.8"}, gotQuery["threshold"])

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "event: start")
}

func TestSimilarityStreamRejectsNon200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such case", http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", 5*time.Second)
	_, err := c.SimilarityStream(context.Background(), "missing", nil, 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
