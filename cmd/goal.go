package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/cli"
	"github.com/theirongolddev/finpilot/internal/goal"
	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/store"
)

var (
	flagGoalBy      string
	flagGoalCurrent string
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Track savings goals",
	RunE:  runGoalList,
}

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List savings goals with progress",
	RunE:  runGoalList,
}

var goalAddCmd = &cobra.Command{
	Use:   "add <name> <target>",
	Short: "Add a savings goal",
	Args:  cobra.ExactArgs(2),
	RunE:  runGoalAdd,
}

var goalContributeCmd = &cobra.Command{
	Use:   "contribute <goal-id> <amount>",
	Short: "Record a contribution to a goal",
	Args:  cobra.ExactArgs(2),
	RunE:  runGoalContribute,
}

func init() {
	goalAddCmd.Flags().StringVar(&flagGoalBy, "by", "", "Target date (YYYY-MM-DD)")
	goalAddCmd.Flags().StringVar(&flagGoalCurrent, "current", "", "Amount already saved")

	goalCmd.AddCommand(goalListCmd, goalAddCmd, goalContributeCmd)
	rootCmd.AddCommand(goalCmd)
}

func runGoalList(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	goals, err := s.repo.ListGoals(ctx, s.user)
	if err != nil {
		return err
	}
	if len(goals) == 0 {
		fmt.Printf("\n  No goals for %s. Add one with `finpilot goal add <name> <target>`.\n\n", s.user)
		return nil
	}

	now := s.eng.Now()
	rows := make([][]string, 0, len(goals))
	for _, g := range goals {
		g = goal.Refresh(g, now)
		track := "on track"
		switch {
		case g.Status == model.GoalCompleted:
			track = "completed"
		case g.TargetDate == nil:
			track = "-"
		case !g.Progress.OnTrack:
			track = "behind"
		}
		monthly := "-"
		if g.Progress.RecommendedMonthlyContribution > 0 {
			monthly = cli.FormatCents(g.Progress.RecommendedMonthlyContribution)
		}
		rows = append(rows, []string{
			g.Name,
			cli.FormatCents(g.Current) + " / " + cli.FormatCents(g.Target),
			cli.RenderProgressBar(g.Progress.ProgressPercent, 16),
			track,
			cli.FormatDate(g.TargetDate),
			monthly,
			shortID(g.ID),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("SAVINGS GOALS  " + s.user))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Goal", "Saved", "Progress", "Status", "Due", "Per Month", "ID"},
		Rows:    rows,
	}))
	return nil
}

func runGoalAdd(_ *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return errors.New("goal name is required")
	}
	target, err := model.ParseCents(args[1])
	if err != nil {
		return err
	}
	if target <= 0 {
		return errors.New("target must be positive")
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	now := s.eng.Now()

	g := model.Goal{
		ID:        uuid.NewString(),
		UserID:    s.user,
		Name:      name,
		Target:    target,
		StartDate: now,
	}
	if flagGoalCurrent != "" {
		if g.Current, err = model.ParseCents(flagGoalCurrent); err != nil {
			return err
		}
		if g.Current < 0 {
			return errors.New("--current cannot be negative")
		}
	}
	if flagGoalBy != "" {
		by, err := time.ParseInLocation("2006-01-02", flagGoalBy, time.Local)
		if err != nil {
			return fmt.Errorf("--by: %w", err)
		}
		if !by.After(now) {
			return errors.New("--by must be in the future")
		}
		g.TargetDate = &by
	}
	g = goal.Refresh(g, now)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.repo.SaveGoal(ctx, g); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": s.user, "goal_id": g.ID}).Info("goal added")

	fmt.Printf("\n  Added %q (%s)\n", g.Name, g.ID)
	if g.Progress.RecommendedMonthlyContribution > 0 {
		fmt.Printf("  Save %s a month to reach %s by %s.\n",
			cli.FormatCents(g.Progress.RecommendedMonthlyContribution), cli.FormatCents(g.Target), cli.FormatDate(g.TargetDate))
	}
	fmt.Println()
	return nil
}

func runGoalContribute(_ *cobra.Command, args []string) error {
	amount, err := model.ParseCents(args[1])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g, err := findGoal(ctx, s, args[0])
	if err != nil {
		return err
	}
	g, err = goal.Contribute(g, amount, s.eng.Now())
	if err != nil {
		return err
	}
	if err := s.repo.SaveGoal(ctx, g); err != nil {
		return err
	}

	fmt.Printf("\n  %s: %s of %s (%s)\n", g.Name, cli.FormatCents(g.Current), cli.FormatCents(g.Target),
		cli.FormatPercent(g.Progress.ProgressPercent))
	if g.Status == model.GoalCompleted {
		fmt.Println("  Goal reached!")
	}
	fmt.Println()
	return nil
}

// findGoal resolves a full goal ID or a unique prefix of one.
func findGoal(ctx context.Context, s *session, ref string) (model.Goal, error) {
	g, err := s.repo.GetGoal(ctx, s.user, ref)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return g, err
	}

	goals, err := s.repo.ListGoals(ctx, s.user)
	if err != nil {
		return model.Goal{}, err
	}
	var match []model.Goal
	for _, g := range goals {
		if strings.HasPrefix(g.ID, ref) {
			match = append(match, g)
		}
	}
	switch len(match) {
	case 1:
		return match[0], nil
	case 0:
		return model.Goal{}, fmt.Errorf("goal %q: %w", ref, store.ErrNotFound)
	default:
		return model.Goal{}, fmt.Errorf("goal prefix %q is ambiguous (%d matches)", ref, len(match))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
