package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"mspro-labs/weekly-shop/internal/report"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Check the shopping list without touching the site",
	Run: func(cmd *cobra.Command, args []string) {
		_, siteCfg := loadConfig()
		report.RenderItems(os.Stdout, readList(siteCfg))
	},
}

func init() {
	listCmd.Flags().StringVar(&listPath, "list", "", "shopping list file (overrides shopping_list_path)")
	rootCmd.AddCommand(listCmd)
}
