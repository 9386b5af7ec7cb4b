package matcher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"mspro-labs/weekly-shop/internal/ai"
	"mspro-labs/weekly-shop/internal/basket"
	"mspro-labs/weekly-shop/internal/db"
	"mspro-labs/weekly-shop/internal/models"
)

var logger = log.New(os.Stdout, "MATCHER: ", log.LstdFlags|log.Lshortfile)

// Matcher picks which search result to add for a shopping-list item.
type Matcher struct {
	database  *sql.DB     // optional embedding cache
	embedder  ai.Embedder // nil disables semantic matching
	threshold float32
}

// New returns a Matcher. Passing a nil embedder or a threshold <= 0 gives a
// substring-only matcher; a nil database skips the embedding cache.
func New(database *sql.DB, embedder ai.Embedder, threshold float32) *Matcher {
	return &Matcher{database: database, embedder: embedder, threshold: threshold}
}

// Semantic reports whether embedding-based fallback is active.
func (m *Matcher) Semantic() bool {
	return m.embedder != nil && m.threshold > 0
}

// Pick returns the index of the result to add, or -1 when nothing fits.
// A result whose name contains the item name always wins; otherwise the
// closest result by embedding similarity is used if it clears the threshold.
func (m *Matcher) Pick(ctx context.Context, names []string, item models.Item) (int, error) {
	if idx := basket.FindProduct(names, item); idx >= 0 {
		return idx, nil
	}
	if !m.Semantic() || len(names) == 0 {
		return -1, nil
	}

	// 1. Vector for the requested item
	want, err := m.Vector(ctx, basket.Normalize(item.Name))
	if err != nil {
		return -1, fmt.Errorf("failed to embed %q: %w", item.Name, err)
	}

	// 2. Compare against every result
	best, bestScore := -1, float32(0)
	for i, name := range names {
		v, err := m.Vector(ctx, name)
		if err != nil {
			logger.Printf("Skipping result %q: %v", name, err)
			continue
		}
		if score := ai.CosineSimilarity(want, v); score > bestScore {
			best, bestScore = i, score
		}
	}

	// 3. Only accept a confident match
	if best < 0 || bestScore < m.threshold {
		return -1, nil
	}
	logger.Printf("Semantic match for %q: %q (%.1f%%)", item.Name, names[best], bestScore*100)
	return best, nil
}

// Vector handles the "cache-aside" logic for name embeddings.
func (m *Matcher) Vector(ctx context.Context, text string) ([]float32, error) {
	if m.embedder == nil {
		return nil, ai.ErrNoAPIKey
	}

	// A. Try Cache
	if m.database != nil {
		blob, err := db.GetCachedEmbedding(m.database, text)
		if err == nil {
			return ai.DecodeVector(blob)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Printf("Warning: cache lookup failed for %q: %v", text, err)
		}
	}

	// B. Cache Miss - Use AI
	v, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	// C. Save to Cache (don't fail the match if cache save fails)
	if m.database != nil {
		blob, err := ai.EncodeVector(v)
		if err == nil {
			err = db.SaveCachedEmbedding(m.database, text, blob)
		}
		if err != nil {
			logger.Printf("Warning: failed to cache vector for %q: %v", text, err)
		}
	}

	return v, nil
}

// Cached reports whether text already has a stored vector.
func (m *Matcher) Cached(text string) bool {
	if m.database == nil {
		return false
	}
	_, err := db.GetCachedEmbedding(m.database, text)
	return err == nil
}
