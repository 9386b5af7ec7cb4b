package basket

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mspro-labs/weekly-shop/internal/config"
	"mspro-labs/weekly-shop/internal/models"
)

// Normalize trims s and drops thousands separators so that page text like
// "1,234 Apples" compares equal to "1234 Apples".
func Normalize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}

// Missing returns the requested items that have no equal entry in observed.
// Names are compared after Normalize; quantities must match exactly.
func Missing(requested, observed []models.Item) []models.Item {
	inBasket := make(map[models.Item]struct{}, len(observed))
	for _, item := range observed {
		inBasket[normalized(item)] = struct{}{}
	}

	var missing []models.Item
	for _, item := range requested {
		if _, ok := inBasket[normalized(item)]; !ok {
			missing = append(missing, item)
		}
	}
	return missing
}

func normalized(item models.Item) models.Item {
	return models.Item{Name: Normalize(item.Name), Quantity: item.Quantity}
}

// ParseBasketHTML rebuilds the basket from the full trolley page. Names and
// quantities are listed separately in the markup and paired by position.
func ParseBasketHTML(html string, sel config.Selectors) ([]models.Item, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var names []string
	doc.Find(sel.BasketProduct).Each(func(_ int, s *goquery.Selection) {
		names = append(names, Normalize(s.Find(sel.BasketProductLink).First().Text()))
	})

	var amounts []string
	doc.Find(sel.BasketQuantity).Each(func(_ int, s *goquery.Selection) {
		amounts = append(amounts, strings.TrimSpace(s.Text()))
	})

	if len(names) != len(amounts) {
		return nil, fmt.Errorf("basket markup mismatch: %d products but %d quantities", len(names), len(amounts))
	}

	items := make([]models.Item, 0, len(names))
	for i, name := range names {
		qty, err := strconv.Atoi(amounts[i])
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q for %q: %w", amounts[i], name, err)
		}
		items = append(items, models.Item{Name: name, Quantity: qty})
	}
	return items, nil
}

// ParseSearchResults lists the product names on a search results page in
// page order. The index of a name is the index of its product element.
func ParseSearchResults(html string, sel config.Selectors) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var names []string
	doc.Find(sel.ProductLister).First().Find(sel.Product).Each(func(_ int, s *goquery.Selection) {
		names = append(names, Normalize(s.Find(sel.ProductName).First().Text()))
	})
	return names, nil
}

// FindProduct returns the index of the first result whose name contains the
// item's name, or -1.
func FindProduct(names []string, item models.Item) int {
	want := Normalize(item.Name)
	if want == "" {
		return -1
	}
	for i, name := range names {
		if strings.Contains(Normalize(name), want) {
			return i
		}
	}
	return -1
}
