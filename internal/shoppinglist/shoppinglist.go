package shoppinglist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"mspro-labs/weekly-shop/internal/models"
)

// ErrInvalidLine is returned for any line that is neither blank, a comment,
// nor a valid "quantity|name" entry.
var ErrInvalidLine = errors.New("invalid line in shopping list")

// ReadFile opens the shopping list at path and parses it.
func ReadFile(path string) ([]models.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shopping list '%s': %w", path, err)
	}
	defer f.Close()

	items, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// Parse reads one entry per line, keeping file order.
func Parse(r io.Reader) ([]models.Item, error) {
	var items []models.Item

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		item, ok, err := ParseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if ok {
			items = append(items, item)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shopping list: %w", err)
	}

	return items, nil
}

// ParseLine parses a single "quantity|name" line.
// ok is false for blank and comment lines.
func ParseLine(line string) (item models.Item, ok bool, err error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return models.Item{}, false, nil
	}

	parts := strings.Split(line, "|")
	if len(parts) != 2 {
		return models.Item{}, false, fmt.Errorf("%w: %q", ErrInvalidLine, line)
	}

	amount, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return models.Item{}, false, fmt.Errorf("%w: invalid amount %q in %q", ErrInvalidLine, parts[0], line)
	}
	if amount <= 0 {
		return models.Item{}, false, fmt.Errorf("%w: amount must be positive in %q", ErrInvalidLine, line)
	}

	name := strings.TrimSpace(parts[1])
	if name == "" {
		return models.Item{}, false, fmt.Errorf("%w: missing item name in %q", ErrInvalidLine, line)
	}

	return models.Item{Name: name, Quantity: amount}, true, nil
}
