package cmd

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"mspro-labs/weekly-shop/internal/ai"
	"mspro-labs/weekly-shop/internal/config"
	"mspro-labs/weekly-shop/internal/db"
	"mspro-labs/weekly-shop/internal/matcher"
	"mspro-labs/weekly-shop/internal/models"
	"mspro-labs/weekly-shop/internal/notify"
	"mspro-labs/weekly-shop/internal/report"
	"mspro-labs/weekly-shop/internal/shopper"
	"mspro-labs/weekly-shop/internal/shoppinglist"
)

var (
	skipCheckout bool
	listPath     string
)

// shopCmd represents the shop command
var shopCmd = &cobra.Command{
	Use:   "shop",
	Short: "Fill the trolley from the shopping list and go to checkout",
	Long: `Logs in, empties the trolley, searches for and adds every item on the
shopping list, reports anything missing from the trolley and opens checkout.
Delivery slot and payment are left for you.`,
	Run: func(cmd *cobra.Command, args []string) {
		runShop()
	},
}

func init() {
	shopCmd.Flags().BoolVar(&skipCheckout, "skip-checkout", false, "stop after checking the trolley")
	shopCmd.Flags().StringVar(&listPath, "list", "", "shopping list file (overrides shopping_list_path)")
	rootCmd.AddCommand(shopCmd)
}

func runShop() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// 1. Load Config & read the list
	appCfg, siteCfg := loadConfig()
	if listPath != "" {
		siteCfg.ShoppingListPath = listPath
	}
	if err := siteCfg.Validate(); err != nil {
		log.Fatalf("Invalid site config: %v", err)
	}
	items := readList(siteCfg)
	log.Printf("Shopping list has %d items.", len(items))

	// 2. Connect to DB (history is optional, the shop is not)
	database, runID := openStore(appCfg.DBPath, siteCfg.ShoppingListPath)
	if database != nil {
		defer database.Close()
	}

	// 3. Matcher (semantic fallback only when the AI is available)
	m, closeAI := newMatcher(ctx, database, siteCfg, false)
	defer closeAI()

	// 4. Shop
	rep, runErr := shopper.Run(ctx, siteCfg, m, items, shopper.Options{SkipCheckout: skipCheckout})
	report.Render(os.Stdout, rep)

	// 5. Record the run
	if runID != 0 {
		if err := db.SaveRunItems(database, runID, rep.Lines); err != nil {
			log.Printf("⚠️ Warning: failed to save run items: %v", err)
		}
		if err := db.FinishRun(database, runID, runErr); err != nil {
			log.Printf("⚠️ Warning: failed to finish run: %v", err)
		}
	}

	// 6. Email the report
	if err := notify.Send(siteCfg.Notify, rep, runErr); err != nil {
		log.Printf("⚠️ Warning: %v", err)
	}

	if runErr != nil {
		closeAI()
		if database != nil {
			database.Close()
		}
		log.Fatalf("Shop failed: %v", runErr)
	}
}

// openStore connects to the history database and records the start of a
// run. On failure it logs and returns a nil database or a zero run id, and
// the shop goes ahead unrecorded.
func openStore(dbPath, listPath string) (*sql.DB, int64) {
	database, err := db.Connect(dbPath)
	if err != nil {
		log.Printf("⚠️ Warning: run will not be recorded: %v", err)
		return nil, 0
	}
	runID, err := db.StartRun(database, listPath)
	if err != nil {
		log.Printf("⚠️ Warning: run will not be recorded: %v", err)
		return database, 0
	}
	return database, runID
}

func loadConfig() (config.AppConfig, *config.SiteConfig) {
	appCfg, err := config.GetAppConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	siteCfg, err := config.LoadSiteConfig(appCfg.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load site config: %v", err)
	}
	return appCfg, siteCfg
}

// readList reads the shopping list, honouring --list when set.
func readList(siteCfg *config.SiteConfig) []models.Item {
	if listPath != "" {
		siteCfg.ShoppingListPath = listPath
	}
	if siteCfg.ShoppingListPath == "" {
		log.Fatal("No shopping list: set shopping_list_path or pass --list")
	}
	items, err := shoppinglist.ReadFile(siteCfg.ShoppingListPath)
	if err != nil {
		log.Fatalf("Failed to read shopping list: %v", err)
	}
	return items
}

// newMatcher builds the product matcher. Without GEMINI_API_KEY it falls back
// to substring matching, unless requireAI is set.
func newMatcher(ctx context.Context, database *sql.DB, siteCfg *config.SiteConfig, requireAI bool) (*matcher.Matcher, func()) {
	aiClient, err := ai.NewClient(ctx)
	if err != nil {
		if requireAI {
			log.Fatalf("Failed to initialize AI client: %v", err)
		}
		if !errors.Is(err, ai.ErrNoAPIKey) {
			log.Printf("⚠️ Warning: Could not initialize AI, using substring matching only: %v", err)
		}
		return matcher.New(database, nil, 0), func() {}
	}
	return matcher.New(database, aiClient, siteCfg.Match.SemanticThreshold), aiClient.Close
}
