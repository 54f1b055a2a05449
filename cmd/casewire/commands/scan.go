package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"

	"github.com/caseboard/casewire/internal/model"
	"github.com/caseboard/casewire/internal/stream"
)

var (
	scanEntityTypes []string
	scanThreshold   float64
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <case-id>",
		Short: "Run an entity-similarity scan and follow its progress",
		Long: `Launch an entity-similarity scan on the backend and print its
progress stream as it arrives. Ctrl-C cancels the scan.

Examples:
  casewire scan case-42
  casewire scan --entity-type person --threshold 0.8 case-42`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}

	cmd.Flags().StringArrayVar(&scanEntityTypes, "entity-type", nil, "Entity types to scan (repeatable)")
	cmd.Flags().Float64Var(&scanThreshold, "threshold", 0, "Minimum similarity score")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var runErr error
	done := make(chan struct{})
	var once sync.Once
	finish := func(err error) {
		once.Do(func() {
			runErr = err
			close(done)
		})
	}

	handlers := stream.Handlers{
		OnStart: func(ev stream.Event) {
			var p stream.ScanStarted
			if ev.Decode(&p) == nil {
				fmt.Printf("Scan %s started for case %s\n", p.ScanID, p.CaseID)
			}
		},
		OnTypeStart: func(ev stream.Event) {
			var p stream.TypeProgress
			if ev.Decode(&p) == nil {
				fmt.Printf("  %s: scanning %d entities\n", p.EntityType, p.Total)
			}
		},
		OnProgress: func(ev stream.Event) {
			var p stream.TypeProgress
			if ev.Decode(&p) == nil {
				fmt.Printf("  %s: %d/%d\n", p.EntityType, p.Processed, p.Total)
			}
		},
		OnTypeComplete: func(ev stream.Event) {
			var p stream.TypeProgress
			if ev.Decode(&p) == nil {
				fmt.Printf("  %s: done\n", p.EntityType)
			}
		},
		OnComplete: func(ev stream.Event) {
			var p stream.ScanComplete
			if ev.Decode(&p) == nil {
				fmt.Printf("Scan complete: %d matches\n", p.TotalMatches)
			}
			finish(nil)
		},
		OnCancelled: func(ev stream.Event) {
			fmt.Println("Scan cancelled")
			finish(nil)
		},
		OnError: func(ev stream.Event) {
			finish(fmt.Errorf("scan failed: %s", ev.Data))
		},
		OnTransportError: finish,
	}

	cancel, err := stream.Start(ctx, newClient(cfg), model.ScanRequest{
		CaseID:      args[0],
		EntityTypes: scanEntityTypes,
		Threshold:   scanThreshold,
	}, handlers)
	if err != nil {
		return err
	}

	select {
	case <-done:
	case <-ctx.Done():
		cancel()
		<-done
	}
	return runErr
}
