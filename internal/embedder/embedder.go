package embedder

import (
	"context"
	"log"
	"os"
	"time"

	"mspro-labs/weekly-shop/internal/basket"
	"mspro-labs/weekly-shop/internal/matcher"
	"mspro-labs/weekly-shop/internal/models"
)

var logger = log.New(os.Stdout, "EMBEDDER: ", log.LstdFlags|log.Lshortfile)

// Pause between API calls. Rate limit for free tier safety (approx 60 RPM max).
var Pause = 1 * time.Second

// Run embeds every shopping-list name that is not cached yet and returns how
// many new vectors were stored.
func Run(ctx context.Context, m *matcher.Matcher, items []models.Item) (int, error) {
	// 1. Find work to do
	var targets []string
	seen := make(map[string]bool)
	for _, item := range items {
		name := basket.Normalize(item.Name)
		if seen[name] || m.Cached(name) {
			continue
		}
		seen[name] = true
		targets = append(targets, name)
	}

	if len(targets) == 0 {
		logger.Println("All shopping-list items are already embedded.")
		return 0, nil
	}
	logger.Printf("Found %d new items to embed...", len(targets))

	// 2. Process loop
	count := 0
	for _, name := range targets {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		logger.Printf("Embedding: %s", name)
		if _, err := m.Vector(ctx, name); err != nil {
			logger.Printf("Error embedding %q: %v", name, err)
			time.Sleep(Pause) // Backoff on error
			continue
		}

		count++
		time.Sleep(Pause)
	}

	logger.Printf("Successfully embedded %d items.", count)
	return count, nil
}
