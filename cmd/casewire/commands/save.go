package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caseboard/casewire/internal/model"
	"github.com/caseboard/casewire/internal/snapshot"
)

// NewSaveCmd creates the save command.
func NewSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <snapshot.json>",
		Short: "Upload a snapshot, chunking it if it is too large",
		Long: `Upload an investigation snapshot to the backend.

Small snapshots go up in a single request. Snapshots exceeding the
transport's payload ceiling are split into an ordered chunk sequence
and uploaded chunk by chunk.

Examples:
  casewire save export/snapshot-42.json`,
		Args: cobra.ExactArgs(1),
		RunE: runSave,
	}
}

func runSave(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading snapshot file: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parsing snapshot file: %w", err)
	}

	planner := snapshot.NewPlanner(newClient(cfg), snapshot.PlannerOptions{
		MaxPayloadBytes: cfg.Transfer.MaxPayloadBytes,
		NodeBatchStart:  cfg.Transfer.NodeBatchStart,
		TimelineBatch:   cfg.Transfer.TimelineBatch,
		ChatBatch:       cfg.Transfer.ChatBatch,
		MaxRetries:      cfg.Transfer.MaxRetries,
	})

	if err := planner.Upload(context.Background(), &snap); err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}

	fmt.Printf("Saved snapshot %q (%d nodes, %d links)\n",
		snap.Name, len(snap.Subgraph.Nodes), len(snap.Subgraph.Links))
	return nil
}
