package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/cli"
	"github.com/theirongolddev/finpilot/internal/debt"
	"github.com/theirongolddev/finpilot/internal/model"
)

var flagDebtsStrategy string

var debtsCmd = &cobra.Command{
	Use:   "debts",
	Short: "Rank debts with payoff projections and danger scores",
	RunE:  runDebts,
}

func init() {
	debtsCmd.Flags().StringVarP(&flagDebtsStrategy, "strategy", "s", "", "Ranking: avalanche or snowball (default from config)")
	rootCmd.AddCommand(debtsCmd)
}

func runDebts(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	strategy := s.eng.Config().Strategy
	if flagDebtsStrategy != "" {
		st, ok := debt.ParseStrategy(flagDebtsStrategy)
		if !ok {
			return fmt.Errorf("unknown strategy %q (want avalanche or snowball)", flagDebtsStrategy)
		}
		strategy = st
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	debts, err := s.repo.ListDebts(ctx, s.user)
	if err != nil {
		return err
	}
	if len(debts) == 0 {
		fmt.Printf("\n  No debts on file for %s.\n\n", s.user)
		return nil
	}

	// Project fresh so the table reflects current terms even between decisions.
	projs, rejected := debt.ProjectAll(debts, s.eng.Config().Debt, s.eng.Now())
	ranked := debt.Rank(projs, strategy)
	balance, monthly := debt.Totals(ranked)

	rows := make([][]string, 0, len(ranked)+2)
	var interest model.Cents
	for _, p := range ranked {
		payoff := cli.FormatMonths(p.MonthsToPayoff)
		switch {
		case p.NegativeAmortization:
			payoff = "never"
		case p.Extrapolated:
			payoff = "~" + payoff
		}
		interest += p.TotalProjectedInterest
		rows = append(rows, []string{
			p.Name,
			cli.FormatCents(p.CurrentBalance),
			cli.FormatAPR(p.APRPercent),
			cli.FormatCents(p.MonthlyPayment),
			payoff,
			cli.FormatCents(p.TotalProjectedInterest),
			fmt.Sprintf("%s %3d", cli.RenderScoreBar(p.DangerScore, 10), p.DangerScore),
		})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{"Total", cli.FormatCents(balance), "", cli.FormatCents(monthly), "", cli.FormatCents(interest), ""})

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("DEBTS  %s order", strategy)))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Debt", "Balance", "APR", "Payment", "Payoff", "Interest", "Danger"},
		Rows:    rows,
	}))

	for _, p := range ranked {
		if p.NegativeAmortization {
			fmt.Printf("\n  %s grows every month: pay at least %s more.\n", p.Name, cli.FormatCents(p.Shortfall()))
		}
	}
	for _, r := range rejected {
		fmt.Printf("\n  %s\n", cli.Muted(fmt.Sprintf("Skipped %s %s: %s", r.Entity, r.ID, r.Reason)))
	}
	fmt.Println()
	return nil
}
