package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type durationData struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func newDurationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duration [minutes]",
		Short: "Show or change the run duration",
		Long:  "Show or change the run duration in whole minutes. The change applies to future starts only; runs already on a slot keep their clock.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				resp, err := client.Get("/api/v1/config/run-duration")
				if err != nil {
					return fmt.Errorf("get run duration: %w", err)
				}
				var d durationData
				if err := json.Unmarshal(resp.Data, &d); err != nil {
					return fmt.Errorf("parse response: %w", err)
				}
				fmt.Printf("Run duration: %d minutes (%s per run).\n", d.Minutes, clock(d.Seconds))
				return nil
			}

			minutes, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("minutes must be an integer, got %q", args[0])
			}

			resp, err := client.Put("/api/v1/config/run-duration", map[string]any{"minutes": minutes})
			if err != nil {
				return fmt.Errorf("set run duration: %w", err)
			}
			var d durationData
			if err := json.Unmarshal(resp.Data, &d); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			fmt.Printf("Run duration set to %d minutes.\n", d.Minutes)
			return nil
		},
	}
}
