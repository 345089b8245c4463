package cli

import (
	"encoding/json"
	"fmt"

	"github.com/me/pitwall/pkg/model"
	"github.com/spf13/cobra"
)

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <team_id>",
		Short: "Add a team to the waiting queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Post("/api/v1/queue", map[string]any{"team_id": args[0]})
			if err != nil {
				return fmt.Errorf("join queue: %w", err)
			}

			var entry model.QueueEntry
			if err := json.Unmarshal(resp.Data, &entry); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Team %s joined the waiting queue.\n", entry.TeamID)
			return nil
		},
	}
}
