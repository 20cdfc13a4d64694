package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage stored account credentials",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts in their persisted order",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		listed, err := c.ListAccounts()
		if err != nil {
			return err
		}
		if len(listed) == 0 {
			fmt.Println("No accounts stored.")
			return nil
		}

		heading := color.New(color.FgCyan, color.Bold)
		heading.Println("  #  Number")
		for i, account := range listed {
			fmt.Printf("%3d  %d\n", i+1, account.Number)
		}
		return nil
	},
}

var accountsAddCmd = &cobra.Command{
	Use:   "add <number> <refresh-token>",
	Short: "Store (or replace) the refresh credential for an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid account number %q: %w", args[0], err)
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.AddAccount(number, args[1]); err != nil {
			return err
		}

		color.Green("Account %d stored.", number)
		return nil
	},
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <number>",
	Short: "Delete an account's stored credential and tear down its sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid account number %q: %w", args[0], err)
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.RemoveAccount(cmd.Context(), number); err != nil {
			return err
		}

		color.Green("Account %d removed.", number)
		return nil
	},
}

func init() {
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsAddCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)
	rootCmd.AddCommand(accountsCmd)
}
