package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-partner-client/api"
	"github.com/jrsteele09/go-partner-client/client"
)

// cliCallerID is the caller identity of the single-user CLI deployment.
const cliCallerID = "cli"

var accountNumber int64

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Fetch the subscriber profile for an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := activatedService(cmd.Context())
		if err != nil {
			return err
		}

		profile, err := service.Profile(cmd.Context(), cliCallerID)
		if err != nil {
			return err
		}

		color.New(color.Bold).Println("Profile")
		fmt.Printf("  Number:       %s\n", profile.Msisdn)
		fmt.Printf("  Name:         %s\n", profile.Name)
		fmt.Printf("  Subscription: %s\n", profile.SubscriptionType)
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Fetch the remaining balance for an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := activatedService(cmd.Context())
		if err != nil {
			return err
		}

		balance, err := service.Balance(cmd.Context(), cliCallerID)
		if err != nil {
			return err
		}

		color.New(color.Bold).Println("Balance")
		fmt.Printf("  Remaining: Rp %d\n", balance.Remaining)
		if balance.ExpiredAt > 0 {
			fmt.Printf("  Active to: %s\n", time.Unix(balance.ExpiredAt, 0).Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// activatedService builds the client, activates the requested account
// (or the first stored one when --number is omitted), and wraps it in
// the typed API service.
func activatedService(ctx context.Context) (*api.Service, error) {
	c, err := newClient()
	if err != nil {
		return nil, err
	}

	number := accountNumber
	if number == 0 {
		listed, err := c.ListAccounts()
		if err != nil {
			return nil, err
		}
		if len(listed) == 0 {
			return nil, fmt.Errorf("no accounts stored; run 'partner-client accounts add' first")
		}
		number = listed[0].Number
	}

	if err := activate(ctx, c, number); err != nil {
		return nil, err
	}
	return api.NewService(c)
}

func activate(ctx context.Context, c *client.Client, number int64) error {
	if err := c.Activate(ctx, cliCallerID, number); err != nil {
		return fmt.Errorf("activating account %d: %w", number, err)
	}
	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{profileCmd, balanceCmd} {
		cmd.Flags().Int64Var(&accountNumber, "number", 0, "account number (defaults to the first stored account)")
		rootCmd.AddCommand(cmd)
	}
}
