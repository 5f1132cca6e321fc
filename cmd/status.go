package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/cli"
	"github.com/theirongolddev/finpilot/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current decision",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d, ok, err := s.eng.Current(ctx, s.user)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println()
		fmt.Printf("  No current decision for %s.\n", s.user)
		fmt.Println("  Run `finpilot decide` to compute one.")
		fmt.Println()
		return nil
	}

	printDecision(d, s.eng.Now())
	return nil
}

// printDecision renders a decision the same way for status and decide.
func printDecision(d model.Decision, now time.Time) {
	fmt.Println()
	fmt.Println(cli.RenderTitle("DECISION  " + d.UserID))
	fmt.Println()
	fmt.Printf("  %s  %s\n", cli.RenderRiskBadge(d.RiskLevel), cli.Header(d.Command.Text))
	fmt.Println()

	pairs := [][2]string{{"Command", string(d.Command.Type)}}
	if d.Command.Amount != nil {
		pairs = append(pairs, [2]string{"Amount", cli.FormatCents(*d.Command.Amount)})
	}
	if d.Command.Target != "" {
		pairs = append(pairs, [2]string{"Target", d.Command.Target})
	}
	if d.Command.Date != nil {
		pairs = append(pairs, [2]string{"By", cli.FormatDate(d.Command.Date)})
	}
	pairs = append(pairs,
		[2]string{"State", string(d.State(now))},
		[2]string{"Computed", d.ComputedAt.Local().Format("Jan 2 15:04")},
		[2]string{"Expires", cli.FormatUntil(d.ExpiresAt, now)},
		[2]string{"ID", d.ID},
	)
	fmt.Print(cli.RenderKV(pairs))

	if len(d.Warnings) > 0 {
		fmt.Println()
		fmt.Println("  " + cli.Header("Warnings"))
		for _, w := range d.Warnings {
			fmt.Printf("  ▲ %s\n", w.Text)
		}
	}
	if d.NextAction.Text != "" {
		fmt.Println()
		fmt.Printf("  %s %s\n", cli.Header("Next:"), d.NextAction.Text)
	}
	if d.AcknowledgedAt == nil && !d.Expired(now) {
		fmt.Println()
		fmt.Println(cli.Muted("  Acknowledge with `finpilot ack`."))
	}
	fmt.Println()
}
