package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/engine"
)

var ackCmd = &cobra.Command{
	Use:   "ack [decision-id]",
	Short: "Acknowledge the current decision",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAck,
}

func init() {
	rootCmd.AddCommand(ackCmd)
}

func runAck(_ *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var id string
	if len(args) == 1 {
		id = args[0]
	} else {
		d, ok, err := s.eng.Current(ctx, s.user)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("\n  No current decision for %s.\n\n", s.user)
			return nil
		}
		id = d.ID
	}

	res, err := s.eng.Acknowledge(ctx, id, s.user)
	if err != nil {
		return err
	}

	switch res.Outcome {
	case engine.AckAcknowledged:
		fmt.Printf("\n  Acknowledged: %s\n\n", res.Decision.Command.Text)
	case engine.AckAlready:
		fmt.Printf("\n  Already acknowledged at %s.\n\n", res.Decision.AcknowledgedAt.Local().Format("Jan 2 15:04"))
	case engine.AckSuperseded:
		fmt.Println("\n  That decision has been replaced or has expired; nothing to acknowledge.")
		fmt.Println("  Run `finpilot status` to see the current one.")
		fmt.Println()
	}
	return nil
}
