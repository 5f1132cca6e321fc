package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/model"
)

var flagAccountName string

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage account balances",
}

var accountSetCmd = &cobra.Command{
	Use:   "set <account-id> <balance>",
	Short: "Set an account's current balance",
	Args:  cobra.ExactArgs(2),
	RunE:  runAccountSet,
}

func init() {
	accountSetCmd.Flags().StringVar(&flagAccountName, "name", "", "Display name (default: the account ID)")
	accountCmd.AddCommand(accountSetCmd)
	rootCmd.AddCommand(accountCmd)
}

func runAccountSet(_ *cobra.Command, args []string) error {
	balance, err := model.ParseCents(args[1])
	if err != nil {
		return err
	}
	name := flagAccountName
	if name == "" {
		name = args[0]
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	acct := model.Account{ID: args[0], UserID: s.user, Name: name, Balance: balance}
	if err := s.repo.UpsertAccount(ctx, acct); err != nil {
		return err
	}
	fmt.Printf("\n  %s: %s\n\n", name, balance.Dollars())
	return nil
}
