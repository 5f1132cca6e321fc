// Package cmd implements the finpilot CLI commands.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/config"
	"github.com/theirongolddev/finpilot/internal/model"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    User:      %s\n", cfg.General.UserID)
	fmt.Printf("    Store:     %s\n", cfg.General.DBDriver)
	fmt.Printf("    DSN:       %s\n", maskDSN(config.StoreDSN(cfg)))
	fmt.Printf("    Log level: %s\n", cfg.General.LogLevel)
	fmt.Println()

	fmt.Println("  [Engine]")
	fmt.Printf("    Strategy:        %s\n", cfg.Engine.Strategy)
	fmt.Printf("    Validity:        %dh\n", cfg.Engine.ValidityHours)
	fmt.Printf("    Lookback:        %d days\n", cfg.Engine.LookbackDays)
	fmt.Printf("    Horizon:         %d days\n", cfg.Engine.HorizonDays)
	fmt.Printf("    Safety buffer:   %s\n", model.Cents(cfg.Engine.SafetyBufferCents).Dollars())
	fmt.Printf("    Min observed:    %d days\n", cfg.Engine.MinObservedDays)
	fmt.Printf("    Bill warning:    %d days\n", cfg.Engine.WarningDays)
	fmt.Println()

	fmt.Println("  [Risk]")
	fmt.Printf("    Critical / danger / warning: %d / %d / %d days\n",
		cfg.Risk.CriticalDays, cfg.Risk.DangerDays, cfg.Risk.WarningDays)
	fmt.Printf("    High danger score: %d\n", cfg.Risk.HighDangerScore)
	fmt.Printf("    Caution ratio:     %.2f\n", cfg.Risk.CautionObligationRatio)
	fmt.Println()

	fmt.Println("  [Debt]")
	fmt.Printf("    Max months:   %d\n", cfg.Debt.MaxMonths)
	fmt.Printf("    APR ceiling:  %.2f%%\n", cfg.Debt.APRCeilingPercent)
	fmt.Printf("    Warn score:   %d\n", cfg.Debt.WarningScore)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Schedule: %s\n", cfg.Daemon.Schedule)
	if len(cfg.Daemon.Users) > 0 {
		fmt.Printf("    Users:    %s\n", strings.Join(cfg.Daemon.Users, ", "))
	}
	fmt.Println()

	fmt.Println("  [Notify]")
	if cfg.Notify.Enabled {
		fmt.Printf("    SMTP:     %s:%d\n", cfg.Notify.SMTPHost, cfg.Notify.SMTPPort)
		fmt.Printf("    From:     %s\n", cfg.Notify.From)
		fmt.Printf("    To:       %s\n", strings.Join(cfg.Notify.To, ", "))
		fmt.Printf("    Min risk: %s\n", cfg.NotifyMinRisk())
		if pw := config.SMTPPassword(cfg); pw != "" {
			fmt.Printf("    Password: %s\n", maskSecret(pw))
		} else {
			fmt.Println("    Password: not configured")
		}
	} else {
		fmt.Println("    Disabled")
	}
	fmt.Println()

	fmt.Println("  [Benchmark]")
	if cfg.Benchmark.URL != "" {
		fmt.Printf("    URL:      %s\n", cfg.Benchmark.URL)
	} else {
		fmt.Println("    URL:      default")
	}
	fmt.Printf("    Margin:   %.1f points\n", cfg.Benchmark.MarginPercent)
	fmt.Printf("    Schedule: %s\n", cfg.Benchmark.Schedule)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `finpilot setup` to reconfigure.")
	return nil
}

func maskSecret(s string) string {
	if len(s) > 16 {
		return s[:4] + "..." + s[len(s)-4:]
	}
	return "****"
}

// maskDSN hides the password in a postgres URL.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":****" + dsn[at:]
	}
	return dsn
}
