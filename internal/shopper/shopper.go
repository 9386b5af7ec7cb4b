package shopper

import (
	"context"
	"fmt"
	"log"
	"os"

	"mspro-labs/weekly-shop/internal/models"
	"mspro-labs/weekly-shop/internal/report"
)

var logger = log.New(os.Stdout, "SHOPPER: ", log.LstdFlags|log.Lshortfile)

// Session is one logged-in conversation with the retailer's site.
type Session interface {
	Login() error
	EmptyBasket() error
	AddItem(ctx context.Context, item models.Item) error
	ReadBasket() ([]models.Item, error)
	Checkout() error
}

// Options tweak a shop without touching the site config.
type Options struct {
	SkipCheckout bool
}

// Shop runs the weekly shop against sess, strictly in order. A failure to
// add a single item is logged and skipped; any other failure aborts. The
// returned report is never nil and holds whatever was done before an abort.
func Shop(ctx context.Context, sess Session, items []models.Item, opts Options) (*report.Report, error) {
	rep := report.New(items)

	// 1. Login
	logger.Println("Logging in")
	if err := sess.Login(); err != nil {
		return rep, fmt.Errorf("login failed: %w", err)
	}

	// 2. Start from an empty basket
	logger.Println("Empty the previous shopping basket")
	if err := sess.EmptyBasket(); err != nil {
		return rep, fmt.Errorf("failed to empty basket: %w", err)
	}

	// 3. Fill the basket
	logger.Println("Add items to basket")
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := sess.AddItem(ctx, item); err != nil {
			logger.Printf("Error adding item: %s: %v", item, err)
			continue
		}
		rep.MarkAdded(i)
		logger.Printf("Added %s", item)
	}

	// 4. Read the basket back and diff it
	logger.Println("Checking for items missing from the basket")
	observed, err := sess.ReadBasket()
	if err != nil {
		return rep, fmt.Errorf("failed to read basket: %w", err)
	}
	for _, item := range rep.Reconcile(observed) {
		logger.Printf("ERROR: Basket missing: %s", item)
	}

	// 5. Checkout
	if opts.SkipCheckout {
		logger.Println("Skipping checkout")
		return rep, nil
	}
	if err := sess.Checkout(); err != nil {
		return rep, fmt.Errorf("checkout failed: %w", err)
	}
	logger.Println("Choose delivery slot, input payment details and confirm")

	return rep, nil
}
