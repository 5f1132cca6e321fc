package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/config"
	"github.com/theirongolddev/finpilot/internal/model"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)

	// Load existing config or defaults
	cfg, _ := config.Load()

	fmt.Println()
	fmt.Println("  Welcome to finpilot!")
	fmt.Println()

	// 1. User
	fmt.Println("  1. User ID")
	fmt.Println("     Whose accounts, bills and debts decisions are computed for.")
	fmt.Printf("     Current: %s\n", cfg.General.UserID)
	fmt.Print("     > ")
	user, _ := reader.ReadString('\n')
	if user = strings.TrimSpace(user); user != "" {
		cfg.General.UserID = user
	}
	fmt.Println()

	// 2. Strategy
	fmt.Println("  2. Debt payoff strategy")
	fmt.Println("     (1) Avalanche: highest APR first [default]")
	fmt.Println("     (2) Snowball: smallest balance first")
	fmt.Print("     > ")
	choice, _ := reader.ReadString('\n')
	switch strings.TrimSpace(choice) {
	case "2":
		cfg.Engine.Strategy = "snowball"
	default:
		cfg.Engine.Strategy = "avalanche"
	}
	fmt.Println()

	// 3. Safety buffer
	fmt.Println("  3. Safety buffer")
	fmt.Println("     Cash kept aside when computing safe-to-spend.")
	fmt.Printf("     Current: %s\n", model.Cents(cfg.Engine.SafetyBufferCents).Dollars())
	fmt.Print("     > ")
	buf, _ := reader.ReadString('\n')
	if buf = strings.TrimSpace(buf); buf != "" {
		c, err := model.ParseCents(buf)
		if err != nil || c < 0 {
			fmt.Println("     Not a valid amount, keeping the current buffer.")
		} else {
			cfg.Engine.SafetyBufferCents = int64(c)
		}
	}
	fmt.Println()

	// 4. Theme
	fmt.Println("  4. Color theme")
	fmt.Println("     (1) Flexoki Dark [default]")
	fmt.Println("     (2) Catppuccin Mocha")
	fmt.Println("     (3) Tokyo Night")
	fmt.Println("     (4) Terminal (ANSI 16)")
	fmt.Print("     > ")
	themeChoice, _ := reader.ReadString('\n')
	switch strings.TrimSpace(themeChoice) {
	case "2":
		cfg.Appearance.Theme = "catppuccin-mocha"
	case "3":
		cfg.Appearance.Theme = "tokyo-night"
	case "4":
		cfg.Appearance.Theme = "terminal"
	default:
		cfg.Appearance.Theme = "flexoki-dark"
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Next: `finpilot apply <changefeed>` then `finpilot decide`.")
	fmt.Println()

	return nil
}
