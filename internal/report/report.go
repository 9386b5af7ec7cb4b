package report

import (
	"fmt"
	"io"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"

	"mspro-labs/weekly-shop/internal/basket"
	"mspro-labs/weekly-shop/internal/models"
)

// minHintSimilarity keeps unrelated basket lines out of the hints.
const minHintSimilarity = 0.7

// Report is the outcome of one shop, line by line in shopping-list order.
// Until Reconcile runs the basket is unknown and no line is Checked.
type Report struct {
	Lines      []models.RunItem
	Basket     []models.Item
	Reconciled bool
}

// New starts a report for the requested items; nothing is added yet.
func New(requested []models.Item) *Report {
	lines := make([]models.RunItem, len(requested))
	for i, item := range requested {
		lines[i] = models.RunItem{Item: item}
	}
	return &Report{Lines: lines}
}

// MarkAdded records that the i-th requested item was put in the basket.
func (r *Report) MarkAdded(i int) {
	r.Lines[i].Added = true
}

// Reconcile diffs the requested items against the basket as read back from
// the page and flags each line with no matching basket entry.
func (r *Report) Reconcile(observed []models.Item) []models.Item {
	r.Basket = observed
	r.Reconciled = true
	missing := basket.Missing(r.Requested(), observed)

	flagged := make(map[models.Item]bool, len(missing))
	for _, item := range missing {
		flagged[item] = true
	}
	for i := range r.Lines {
		r.Lines[i].Checked = true
		r.Lines[i].Missing = flagged[r.Lines[i].Item]
	}
	return missing
}

func (r *Report) Requested() []models.Item {
	items := make([]models.Item, len(r.Lines))
	for i, l := range r.Lines {
		items[i] = l.Item
	}
	return items
}

func (r *Report) Missing() []models.Item {
	var items []models.Item
	for _, l := range r.Lines {
		if l.Missing {
			items = append(items, l.Item)
		}
	}
	return items
}

// Failed lists the items that could not be added during the fill loop.
func (r *Report) Failed() []models.Item {
	var items []models.Item
	for _, l := range r.Lines {
		if !l.Added {
			items = append(items, l.Item)
		}
	}
	return items
}

// Hint pairs a missing item with the most similar basket entry, which is
// usually the product the search picked instead.
type Hint struct {
	Item       models.Item
	Closest    models.Item
	Similarity float64
}

// Hints finds, for each missing item, the closest basket entry by
// Jaro-Winkler similarity of the names. Items with nothing similar enough
// get a zero Closest.
func Hints(missing, observed []models.Item) []Hint {
	hints := make([]Hint, 0, len(missing))
	for _, item := range missing {
		h := Hint{Item: item}
		want := basket.Normalize(item.Name)
		for _, b := range observed {
			sim := matchr.JaroWinkler(want, basket.Normalize(b.Name), false)
			if sim > h.Similarity {
				h.Similarity = sim
				h.Closest = b
			}
		}
		if h.Similarity < minHintSimilarity {
			h.Closest, h.Similarity = models.Item{}, 0
		}
		hints = append(hints, h)
	}
	return hints
}

// NewTable returns a rounded table writer mirroring to w.
func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// RenderItems prints a shopping list.
func RenderItems(w io.Writer, items []models.Item) {
	t := NewTable(w)
	t.AppendHeader(table.Row{"#", "Quantity", "Item"})
	for i, item := range items {
		t.AppendRow(table.Row{i + 1, item.Quantity, item.Name})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d items", len(items))})
	t.Render()
}

// Render prints the summary and, if anything is missing, a table of missing
// items with the closest basket entry. A report whose basket was never read
// lists the requested items instead.
func Render(w io.Writer, r *Report) {
	if !r.Reconciled {
		renderUnchecked(w, r)
		return
	}

	missing := r.Missing()
	fmt.Fprintf(w, "Requested: %d  Added: %d  In basket: %d  Missing: %d\n",
		len(r.Lines), len(r.Lines)-len(r.Failed()), len(r.Basket), len(missing))

	if len(missing) == 0 {
		fmt.Fprintln(w, "Basket matches the shopping list.")
		return
	}

	t := NewTable(w)
	t.AppendHeader(table.Row{"Quantity", "Missing item", "Closest in basket"})
	for _, h := range Hints(missing, r.Basket) {
		closest := "-"
		if h.Closest.Name != "" {
			closest = fmt.Sprintf("%d x %s (%.0f%%)", h.Closest.Quantity, h.Closest.Name, h.Similarity*100)
		}
		t.AppendRow(table.Row{h.Item.Quantity, h.Item.Name, closest})
	}
	t.Render()
}

func renderUnchecked(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Requested: %d  Added: %d  In basket: unknown\n",
		len(r.Lines), len(r.Lines)-len(r.Failed()))
	fmt.Fprintln(w, "Basket was not checked; the shop stopped before reading it back.")
	if len(r.Lines) == 0 {
		return
	}

	t := NewTable(w)
	t.AppendHeader(table.Row{"Quantity", "Item", "Added"})
	for _, l := range r.Lines {
		t.AppendRow(table.Row{l.Quantity, l.Name, YesNo(l.Added)})
	}
	t.Render()
}

// YesNo formats a flag for tables.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// BasketState describes a run line's basket check for tables.
func BasketState(l models.RunItem) string {
	switch {
	case !l.Checked:
		return "not checked"
	case l.Missing:
		return "missing"
	default:
		return "yes"
	}
}
