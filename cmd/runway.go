package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/cli"
	"github.com/theirongolddev/finpilot/internal/model"
)

var runwayCmd = &cobra.Command{
	Use:   "runway",
	Short: "Show cash runway and safe-to-spend from the latest decision",
	RunE:  runRunway,
}

func init() {
	rootCmd.AddCommand(runwayCmd)
}

func runRunway(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, ok, err := s.repo.LatestRunway(ctx, s.user)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("\n  No runway computed for %s yet. Run `finpilot decide`.\n\n", s.user)
		return nil
	}
	p := snap.Projection
	now := s.eng.Now()

	fmt.Println()
	fmt.Println(cli.RenderTitle("CASH RUNWAY  " + s.user))
	fmt.Println()
	fmt.Print(cli.RenderKV([][2]string{
		{"Runway", cli.FormatDays(p.DaysUntilZero)},
		{"Zero date", cli.FormatDate(p.ZeroDate)},
		{"Safe to spend today", cli.FormatCents(p.SafeToSpendToday)},
		{"Safe to spend this week", cli.FormatCents(p.SafeToSpendWeek)},
		{"Daily burn", cli.FormatCents(p.DailyBurnRate)},
		{"Weekly burn", cli.FormatCents(p.WeeklyBurnRate)},
		{"Upcoming bills", fmt.Sprintf("%s (%d)", cli.FormatCents(p.UpcomingBillsTotal), p.UpcomingBillsCount)},
		{"Next income", cli.FormatDate(p.NextIncomeDate)},
		{"Observed days", cli.FormatNumber(int64(p.ObservedDays))},
		{"Computed", cli.FormatAge(snap.ComputedAt, now)},
	}))
	if len(p.Trajectory) > 0 {
		fmt.Println()
		fmt.Printf("  %s  %s\n", cli.Muted("Balance"), cli.RenderSparkline(p.Trajectory))
	}
	if p.LowConfidence {
		fmt.Println()
		fmt.Println(cli.Muted("  Low confidence: too few days of spending history."))
	}

	// Bills come from the live snapshot, so they may include changes made
	// since the decision was computed.
	data, err := s.repo.ReadSnapshot(ctx, s.user, now, s.eng.Config().LookbackDays)
	if err != nil {
		return err
	}
	horizon := now.AddDate(0, 0, s.eng.Config().Runway.HorizonDays)
	var upcoming []model.ScheduledItem
	for _, it := range data.Scheduled {
		if it.Active && it.DueAt.Before(horizon) {
			upcoming = append(upcoming, it)
		}
	}
	if len(upcoming) == 0 {
		fmt.Println()
		return nil
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].DueAt.Before(upcoming[j].DueAt) })

	rows := make([][]string, 0, len(upcoming))
	for _, it := range upcoming {
		amount := cli.FormatCents(it.Amount)
		if it.Kind == model.KindBill {
			amount = "-" + amount
		} else {
			amount = "+" + amount
		}
		rows = append(rows, []string{it.Name, it.DueAt.Local().Format("Mon Jan 2"), amount})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Scheduled",
		Headers: []string{"Item", "Due", "Amount"},
		Rows:    rows,
	}))
	return nil
}
