package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caseboard/casewire/internal/query"
)

// NewFilterCmd creates the filter command.
func NewFilterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filter <query> <records.json>",
		Short: "Filter exported records with a boolean search query",
		Long: `Filter a JSON array of records against a boolean search query.

Queries support AND/OR/NOT operators (case-insensitive), quoted phrases,
a leading - for negation, and implicit conjunction between bare terms.
Matching records are printed one JSON object per line.

Examples:
  casewire filter 'alice AND "new york"' export/witnesses.json
  casewire filter '-archived harbor OR dockside' export/cases.json`,
		Args: cobra.ExactArgs(2),
		RunE: runFilter,
	}
}

func runFilter(cmd *cobra.Command, args []string) error {
	expr := query.Parse(args[0])

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading records file: %w", err)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing records file: %w", err)
	}

	matched := 0
	enc := json.NewEncoder(os.Stdout)
	for _, rec := range records {
		if query.Eval(expr, query.RecordPredicate(stringFields(rec)...)) {
			matched++
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(os.Stderr, "%d of %d records matched\n", matched, len(records))
	return nil
}

// stringFields collects the textual values of a record for matching.
func stringFields(rec map[string]interface{}) []string {
	var fields []string
	for _, v := range rec {
		if s, ok := v.(string); ok {
			fields = append(fields, s)
		}
	}
	return fields
}
