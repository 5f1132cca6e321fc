package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/benchmark"
	"github.com/theirongolddev/finpilot/internal/cli"
	"github.com/theirongolddev/finpilot/internal/config"
)

var flagBenchmarkSave bool

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Fetch the central-bank key rate and derive the APR ceiling",
	RunE:  runBenchmark,
}

func init() {
	benchmarkCmd.Flags().BoolVar(&flagBenchmarkSave, "save", false, "Write the derived ceiling to the config file")
	rootCmd.AddCommand(benchmarkCmd)
}

func runBenchmark(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rate, ceiling, err := fetchCeiling(ctx, cfg, flagBenchmarkSave, log)
	if err != nil {
		if errors.Is(err, benchmark.ErrUnavailable) {
			return fmt.Errorf("rate service unavailable, try again later: %w", err)
		}
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("BENCHMARK"))
	fmt.Println()
	fmt.Print(cli.RenderKV([][2]string{
		{"Key rate", rate.Percent.StringFixed(2) + "%"},
		{"Published", rate.Date.Format("2006-01-02")},
		{"Margin", fmt.Sprintf("%.1f points", cfg.Benchmark.MarginPercent)},
		{"APR ceiling", fmt.Sprintf("%.2f%%", ceiling)},
		{"Configured", fmt.Sprintf("%.2f%%", cfg.Debt.APRCeilingPercent)},
	}))
	if flagBenchmarkSave {
		fmt.Printf("\n  Saved to %s\n", config.ConfigPath())
	} else {
		fmt.Println()
		fmt.Println(cli.Muted("  Use --save to make this the danger-score ceiling."))
	}
	fmt.Println()
	return nil
}

// fetchCeiling fetches the key rate and, when save is set, stores the derived
// ceiling in the config file. The running engine keeps its ceiling until the
// next start.
func fetchCeiling(ctx context.Context, cfg config.Config, save bool, log logrus.FieldLogger) (benchmark.Rate, float64, error) {
	rate, err := benchmark.NewClient(cfg.Benchmark.URL).FetchKeyRate(ctx, time.Now())
	if err != nil {
		return benchmark.Rate{}, 0, err
	}
	ceiling := benchmark.Ceiling(rate, cfg.Benchmark.MarginPercent)
	log.WithFields(logrus.Fields{
		"key_rate": rate.Percent.String(),
		"date":     rate.Date.Format("2006-01-02"),
		"ceiling":  ceiling,
	}).Info("benchmark rate fetched")

	if !save {
		return rate, ceiling, nil
	}
	// Reload so edits made since startup are not clobbered.
	fresh, err := config.Load()
	if err != nil {
		return rate, ceiling, err
	}
	fresh.Debt.APRCeilingPercent = ceiling
	if err := config.Save(fresh); err != nil {
		return rate, ceiling, fmt.Errorf("saving config: %w", err)
	}
	return rate, ceiling, nil
}
