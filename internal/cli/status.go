package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/me/pitwall/pkg/model"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the arena: slots, waiting queue, and review",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := fetchSnapshot()
			if err != nil {
				return err
			}
			renderSnapshot(snap)
			return nil
		},
	}
}

func fetchSnapshot() (*model.Snapshot, error) {
	resp, err := client.Get("/api/v1/arena")
	if err != nil {
		return nil, fmt.Errorf("get arena: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(resp.Data, &snap); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &snap, nil
}

func renderSnapshot(snap *model.Snapshot) {
	fmt.Printf("Run duration: %s per run\n\n", clock(snap.RunDurationSeconds))

	fmt.Println("Slots:")
	for _, s := range snap.Slots {
		line := fmt.Sprintf("  %d  %-14s", s.SlotID, s.Status)
		if s.TeamID != "" {
			line += fmt.Sprintf(" %-12s  %s remaining", s.TeamID, clock(s.RemainingSeconds))
			if s.PriorityReRun {
				line += "  (priority re-run)"
			}
		}
		fmt.Println(line)
	}

	fmt.Printf("\nWaiting (%d):\n", len(snap.Waiting))
	if len(snap.Waiting) == 0 {
		fmt.Println("  No teams waiting.")
	}
	for _, e := range snap.Waiting {
		line := fmt.Sprintf("  %d. %-12s  %-8s  joined %s", e.Position, e.TeamID,
			english.Plural(e.RunCount, "run", ""), humanize.Time(e.ArrivalTime))
		if e.PriorityReRun {
			line += "  (priority re-run)"
		}
		fmt.Println(line)
	}

	if len(snap.Review) > 0 {
		fmt.Printf("\nReview (%d):\n", len(snap.Review))
		for _, e := range snap.Review {
			fmt.Printf("  %-12s  %-8s  joined %s\n", e.TeamID,
				english.Plural(e.RunCount, "run", ""), humanize.Time(e.ArrivalTime))
		}
	}
}
