package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mspro-labs/weekly-shop/internal/models"
)

func TestReconcile(t *testing.T) {
	milk := models.Item{Name: "Semi Skimmed Milk 2.27L", Quantity: 1}
	bread := models.Item{Name: "Hovis Soft White Bread 800g", Quantity: 1}
	eggs := models.Item{Name: "Free Range Eggs x12", Quantity: 2}

	r := New([]models.Item{milk, bread, eggs})
	r.MarkAdded(0)
	r.MarkAdded(2)

	missing := r.Reconcile([]models.Item{
		milk,
		{Name: "Free Range Eggs x12", Quantity: 1},
	})

	want := []models.Item{bread, eggs}
	if diff := cmp.Diff(want, missing); diff != "" {
		t.Errorf("Reconcile mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, r.Missing()); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]models.Item{bread}, r.Failed()); diff != "" {
		t.Errorf("Failed mismatch (-want +got):\n%s", diff)
	}

	wantLines := []models.RunItem{
		{Item: milk, Added: true, Checked: true},
		{Item: bread, Checked: true, Missing: true},
		{Item: eggs, Added: true, Checked: true, Missing: true},
	}
	if diff := cmp.Diff(wantLines, r.Lines); diff != "" {
		t.Errorf("Lines mismatch (-want +got):\n%s", diff)
	}
}

func TestHints(t *testing.T) {
	observed := []models.Item{
		{Name: "Free Range Eggs Large x12", Quantity: 1},
		{Name: "Hovis Soft White Bread 800g", Quantity: 1},
	}
	hints := Hints([]models.Item{
		{Name: "Free Range Eggs x12", Quantity: 2},
		{Name: "Saffron", Quantity: 1},
	}, observed)

	if len(hints) != 2 {
		t.Fatalf("Expected 2 hints, got %d", len(hints))
	}
	if hints[0].Closest != observed[0] {
		t.Errorf("Closest for eggs = %v; want %v", hints[0].Closest, observed[0])
	}
	if hints[1].Closest.Name != "" {
		t.Errorf("Saffron should have no hint, got %v", hints[1].Closest)
	}
}

func TestRender(t *testing.T) {
	r := New([]models.Item{{Name: "Milk", Quantity: 1}})
	r.MarkAdded(0)
	r.Reconcile([]models.Item{{Name: "Milk", Quantity: 1}})

	var buf bytes.Buffer
	Render(&buf, r)
	if !strings.Contains(buf.String(), "Basket matches the shopping list.") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}

	r = New([]models.Item{{Name: "Saffron Threads", Quantity: 1}})
	r.Reconcile(nil)
	buf.Reset()
	Render(&buf, r)
	out := buf.String()
	if !strings.Contains(out, "Missing: 1") || !strings.Contains(out, "Saffron Threads") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestRenderItems(t *testing.T) {
	var buf bytes.Buffer
	RenderItems(&buf, []models.Item{{Name: "Milk", Quantity: 3}, {Name: "Bread", Quantity: 1}})
	// Footers are upper-cased by the table style.
	out := strings.ToLower(buf.String())
	for _, want := range []string{"milk", "bread", "2 items"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderUncheckedBasket(t *testing.T) {
	// The shop stopped before the basket was read back.
	r := New([]models.Item{{Name: "Milk", Quantity: 2}, {Name: "Bread", Quantity: 1}})
	r.MarkAdded(0)

	var buf bytes.Buffer
	Render(&buf, r)
	out := buf.String()

	if strings.Contains(out, "Basket matches the shopping list.") || strings.Contains(out, "Missing: 0") {
		t.Errorf("Unread basket reported as complete:\n%s", out)
	}
	for _, want := range []string{"In basket: unknown", "Basket was not checked", "Milk", "Bread"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
	for _, l := range r.Lines {
		if l.Checked || l.Missing {
			t.Errorf("Line %v should be unchecked", l)
		}
	}
}

func TestBasketState(t *testing.T) {
	tests := []struct {
		line models.RunItem
		want string
	}{
		{models.RunItem{}, "not checked"},
		{models.RunItem{Checked: true, Missing: true}, "missing"},
		{models.RunItem{Checked: true}, "yes"},
	}
	for _, tt := range tests {
		if got := BasketState(tt.line); got != tt.want {
			t.Errorf("BasketState(%+v) = %q; want %q", tt.line, got, tt.want)
		}
	}
}
