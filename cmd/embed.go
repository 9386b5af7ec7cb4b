package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"mspro-labs/weekly-shop/internal/db"
	"mspro-labs/weekly-shop/internal/embedder"
)

var clearCache bool

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Generate AI embeddings for the shopping list",
	Long: `Embeds every shopping-list item name that is not cached yet using the
Gemini API, so the next shop can match products semantically without waiting
on the API.

  weekly-shop embed          embed new item names
  weekly-shop embed --clear  drop every cached vector first`,
	Run: func(cmd *cobra.Command, args []string) {
		runEmbed()
	},
}

func init() {
	embedCmd.Flags().StringVar(&listPath, "list", "", "shopping list file (overrides shopping_list_path)")
	embedCmd.Flags().BoolVar(&clearCache, "clear", false, "clear the embedding cache before embedding")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed() {
	ctx := context.Background()

	// 1. Config, list & DB
	appCfg, siteCfg := loadConfig()
	items := readList(siteCfg)

	database, err := db.Connect(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer database.Close()

	if clearCache {
		affected, err := db.ClearEmbeddingCache(database)
		if err != nil {
			log.Fatalf("Failed to clear cache: %v", err)
		}
		fmt.Printf("🗑️ Done. Removed %d embedding(s) from cache.\n", affected)
	}

	// 2. Initialize AI
	m, closeAI := newMatcher(ctx, database, siteCfg, true)
	defer closeAI()

	// 3. Warm the cache
	count, err := embedder.Run(ctx, m, items)
	if err != nil {
		log.Printf("Embedding stopped after %d items: %v", count, err)
	}
}
