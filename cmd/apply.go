package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/changefeed"
	"github.com/theirongolddev/finpilot/internal/cli"
	"github.com/theirongolddev/finpilot/internal/engine"
	"github.com/theirongolddev/finpilot/internal/recompute"
)

var flagApplyNoCompute bool

var applyCmd = &cobra.Command{
	Use:   "apply <path>",
	Short: "Apply a change feed file or directory, then recompute",
	Args:  cobra.ExactArgs(1),
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&flagApplyNoCompute, "no-compute", false, "Store changes without computing a decision")
	rootCmd.AddCommand(applyCmd)
}

func runApply(_ *cobra.Command, args []string) error {
	files, err := changefeed.Discover(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no .jsonl files found in %s", args[0])
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	var (
		cs                  recompute.ChangeSet
		lines, bad, skipped int
	)
	for _, df := range files {
		res := changefeed.ParseFile(df, s.user, time.Local)
		if res.Err != nil {
			return fmt.Errorf("parsing %s: %w", df.Path, res.Err)
		}
		s.log.WithFields(logrus.Fields{
			"file":         df.Path,
			"lines":        res.Lines,
			"parse_errors": res.ParseErrors,
			"skipped":      res.Skipped,
		}).Debug("feed parsed")
		lines += res.Lines
		bad += res.ParseErrors
		skipped += res.Skipped
		cs.Merge(res.Changes)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := s.repo.ApplyChanges(ctx, s.user, cs); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Applied %s changes from %d file(s) (%s lines)\n",
		cli.FormatNumber(int64(cs.Size())), len(files), cli.FormatNumber(int64(lines)))
	if cats := cs.Categories(); len(cats) > 0 {
		fmt.Printf("  Categories: %s\n", strings.Join(cats, ", "))
	}
	if bad > 0 || skipped > 0 {
		fmt.Println(cli.Muted(fmt.Sprintf("  %d malformed, %d skipped", bad, skipped)))
	}

	if flagApplyNoCompute || !recompute.ShouldRecompute(cs) {
		fmt.Println()
		return nil
	}

	d, err := s.eng.Compute(ctx, s.user)
	switch {
	case errors.Is(err, engine.ErrInsufficientData):
		fmt.Println()
		fmt.Println("  Changes stored. Set an account balance with `finpilot account set` to get a decision.")
		fmt.Println()
		return nil
	case errors.Is(err, engine.ErrComputeConflict):
		fmt.Println()
		fmt.Println("  Changes stored. Another compute is running; check `finpilot status` shortly.")
		fmt.Println()
		return nil
	case err != nil:
		return err
	}
	printDecision(d, s.eng.Now())
	return nil
}
