package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/engine"
)

var flagDecideJSON bool

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Compute a fresh decision from the latest data",
	RunE:  runDecide,
}

func init() {
	decideCmd.Flags().BoolVar(&flagDecideJSON, "json", false, "Print the decision as JSON")
	rootCmd.AddCommand(decideCmd)
}

func runDecide(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d, err := s.eng.Compute(ctx, s.user)
	switch {
	case errors.Is(err, engine.ErrInsufficientData):
		return fmt.Errorf("no accounts, transactions or debts for %s yet: run `finpilot apply <feed>` or `finpilot account set` first", s.user)
	case errors.Is(err, engine.ErrComputeConflict):
		return errors.New("another computation for this user is in progress, try again")
	case err != nil:
		return err
	}

	if flagDecideJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	printDecision(d, s.eng.Now())
	return nil
}
