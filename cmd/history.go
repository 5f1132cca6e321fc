package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/cli"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past decisions, newest first",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "l", 20, "Number of decisions to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	if flagHistoryLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", flagHistoryLimit)
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ds, err := s.eng.History(ctx, s.user, flagHistoryLimit)
	if err != nil {
		return err
	}
	if len(ds) == 0 {
		fmt.Printf("\n  No decisions for %s yet.\n\n", s.user)
		return nil
	}

	now := s.eng.Now()
	rows := make([][]string, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, []string{
			d.ComputedAt.Local().Format("Jan 02 15:04"),
			cli.RenderRiskBadge(d.RiskLevel),
			string(d.Command.Type),
			string(d.State(now)),
			d.Command.Text,
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("DECISION HISTORY  %s", s.user)))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Computed", "Risk", "Type", "State", "Command"},
		Rows:    rows,
	}))
	return nil
}
