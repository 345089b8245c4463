package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type reviewData struct {
	TeamID     string `json:"team_id"`
	Resolution string `json:"resolution"`
}

func newReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <team_id> <success|failure|cancel>",
		Short: "Resolve a run waiting for review",
		Long: `Resolve a run waiting for review.

success counts the run and removes the team from the arena.
failure discards the run and requeues the team with a priority re-run.
cancel discards the run without requeueing the team.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			team, resolution := args[0], args[1]

			switch resolution {
			case "success", "failure", "cancel":
			default:
				return fmt.Errorf("unknown resolution %q (want success, failure, or cancel)", resolution)
			}

			resp, err := client.Post("/api/v1/review/"+team+"/"+resolution, nil)
			if err != nil {
				return fmt.Errorf("resolve review: %w", err)
			}

			var data reviewData
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			switch data.Resolution {
			case "success":
				fmt.Printf("Run accepted for %s. The run counts.\n", data.TeamID)
			case "failure":
				fmt.Printf("Run rejected for %s. The team is requeued with a priority re-run.\n", data.TeamID)
			case "cancel":
				fmt.Printf("Run canceled for %s. The team left the arena.\n", data.TeamID)
			}
			return nil
		},
	}
}
