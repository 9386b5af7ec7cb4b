package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"mspro-labs/weekly-shop/internal/config"
	"mspro-labs/weekly-shop/internal/db"
	"mspro-labs/weekly-shop/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history [run id]",
	Short: "Show past shops",
	Long: `Lists previous shops, newest first, or the items of one shop.
Examples:
  weekly-shop history
  weekly-shop history 12`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleHistory(args)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func handleHistory(args []string) {
	// 1. Setup
	appCfg, err := config.GetAppConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	database, err := db.Connect(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer database.Close()

	// 2. Commands
	if len(args) == 0 {
		listRuns(database)
		return
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		log.Fatalf("Not a run id: %q", args[0])
	}
	showRun(database, id)
}

func listRuns(database *sql.DB) {
	runs, err := db.ListRuns(database)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return
	}

	t := report.NewTable(os.Stdout)
	t.AppendHeader(table.Row{"#", "Started", "Status", "Items", "Missing", "List"})
	for _, r := range runs {
		missing := strconv.Itoa(r.Missing)
		if r.Unchecked > 0 {
			missing = "not checked"
		}
		t.AppendRow(table.Row{r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.Status, r.Requested, missing, r.ListPath})
	}
	t.Render()
}

func showRun(database *sql.DB, id int64) {
	run, err := db.GetRun(database, id)
	if errors.Is(err, sql.ErrNoRows) {
		log.Fatalf("No run with id %d", id)
	}
	if err != nil {
		log.Fatalf("Failed to load run: %v", err)
	}
	items, err := db.GetRunItems(database, id)
	if err != nil {
		log.Fatalf("Failed to load run items: %v", err)
	}

	fmt.Printf("Run #%d [%s] %s (%s)\n", run.ID, run.StartedAt.Format("2006-01-02 15:04"), run.ListPath, run.Status)
	if run.Error != "" {
		fmt.Printf("Error: %s\n", run.Error)
	}

	t := report.NewTable(os.Stdout)
	t.AppendHeader(table.Row{"Quantity", "Item", "Added", "In basket"})
	for _, it := range items {
		t.AppendRow(table.Row{it.Quantity, it.Name, report.YesNo(it.Added), report.BasketState(it)})
	}
	t.Render()
}
