package cli

import (
	"encoding/json"
	"fmt"

	"github.com/me/pitwall/pkg/model"
	"github.com/spf13/cobra"
)

// postSlot performs a slot lifecycle action and returns the resulting view.
func postSlot(slotID, action string) (*model.SlotView, error) {
	resp, err := client.Post("/api/v1/slots/"+slotID+"/"+action, nil)
	if err != nil {
		return nil, err
	}

	var view model.SlotView
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &view, nil
}

// clock renders whole seconds as MM:SS.
func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <slot_id>",
		Short: "Start the next waiting team on an idle slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := postSlot(args[0], "start")
			if err != nil {
				return fmt.Errorf("start run: %w", err)
			}
			fmt.Printf("Run started on slot %d: %s, %s on the clock.\n",
				view.SlotID, view.TeamID, clock(view.RemainingSeconds))
			return nil
		},
	}
}

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <slot_id>",
		Short: "Pause a running run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := postSlot(args[0], "pause")
			if err != nil {
				return fmt.Errorf("pause run: %w", err)
			}
			fmt.Printf("Run paused on slot %d: %s, %s remaining.\n",
				view.SlotID, view.TeamID, clock(view.RemainingSeconds))
			return nil
		},
	}
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <slot_id>",
		Short: "Resume a paused or dysfunctional run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := postSlot(args[0], "resume")
			if err != nil {
				return fmt.Errorf("resume run: %w", err)
			}
			fmt.Printf("Run resumed on slot %d: %s, %s remaining.\n",
				view.SlotID, view.TeamID, clock(view.RemainingSeconds))
			return nil
		},
	}
}

func newFlagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flag <slot_id>",
		Short: "Flag a slot as dysfunctional",
		Long:  "Flag a slot as dysfunctional. The bound team keeps its remaining time and is granted a priority re-run.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := postSlot(args[0], "dysfunctional")
			if err != nil {
				return fmt.Errorf("flag slot: %w", err)
			}
			fmt.Printf("Slot %d flagged dysfunctional: %s keeps %s and a priority re-run.\n",
				view.SlotID, view.TeamID, clock(view.RemainingSeconds))
			return nil
		},
	}
}

func newEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end <slot_id>",
		Short: "End a run and send the team to review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := postSlot(args[0], "end")
			if err != nil {
				return fmt.Errorf("end run: %w", err)
			}
			fmt.Printf("Run ended on slot %d. The team is now waiting for review.\n", view.SlotID)
			return nil
		},
	}
}
