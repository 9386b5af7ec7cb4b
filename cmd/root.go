package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "weekly-shop",
	Short: "Automates the weekly online grocery order",
	Long: `Reads a shopping list of "quantity|name" lines, fills the online trolley
with it, checks the trolley against the list and goes to checkout.`,
}

// Execute runs the root command. Called once from main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
