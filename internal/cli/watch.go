package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var interval time.Duration
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously render the arena",
		RunE: func(cmd *cobra.Command, args []string) error {
			rendered := 0
			for {
				snap, err := fetchSnapshot()
				if err != nil {
					return err
				}

				// ANSI clear screen, cursor home.
				fmt.Print("\033[2J\033[H")
				fmt.Printf("Pitwall arena, refreshed every %s\n\n", interval)
				renderSnapshot(snap)

				rendered++
				if count > 0 && rendered >= count {
					return nil
				}

				select {
				case <-cmd.Context().Done():
					return nil
				case <-time.After(interval):
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Refresh interval")
	cmd.Flags().IntVar(&count, "count", 0, "Number of refreshes before exiting (0 = until interrupted)")

	return cmd
}
