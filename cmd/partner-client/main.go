package main

import (
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-partner-client/client"
	"github.com/jrsteele09/go-partner-client/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "partner-client",
	Short: "Signed client for the partner API: manage accounts, fetch profile and balance.",
	Run: func(cmd *cobra.Command, args []string) {
		displayAppname(config.New().GetAppName())
		fmt.Println("Run 'partner-client --help' to see available commands.")
	},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if config.New().GetEnv() == "DEV" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// newClient wires the full stack from environment configuration.
func newClient() (*client.Client, error) {
	return client.NewFromConfig(config.New(), client.WithLogger(log.Logger))
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
