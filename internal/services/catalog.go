package services

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"pizzeria/internal/models"
)

// Catalog is the read-only menu used to price and validate order lines.
type Catalog struct {
	items []models.MenuItem
	byID  map[int]models.MenuItem
}

// NewCatalog builds a catalog from items, keeping their order. Ids must be
// unique and prices positive.
func NewCatalog(items []models.MenuItem) (*Catalog, error) {
	c := &Catalog{
		items: make([]models.MenuItem, 0, len(items)),
		byID:  make(map[int]models.MenuItem, len(items)),
	}
	for _, it := range items {
		if _, dup := c.byID[it.ID]; dup {
			return nil, fmt.Errorf("duplicate menu item id %d", it.ID)
		}
		if it.Name == "" || it.Price <= 0 {
			return nil, fmt.Errorf("menu item %d needs a name and a positive price", it.ID)
		}
		c.items = append(c.items, it)
		c.byID[it.ID] = it
	}
	return c, nil
}

// LoadCatalogFile reads a JSON menu file.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu file %s: %w", path, err)
	}
	var items []models.MenuItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse menu file %s: %w", path, err)
	}
	return NewCatalog(items)
}

// Items returns the menu in load order.
func (c *Catalog) Items() []models.MenuItem {
	out := make([]models.MenuItem, len(c.items))
	copy(out, c.items)
	return out
}

// Item looks up a menu item by id.
func (c *Catalog) Item(id int) (models.MenuItem, bool) {
	it, ok := c.byID[id]
	return it, ok
}

// Price fills the denormalized name and price fields of order from the menu.
// It fails with a ValidationError naming the offending field.
func (c *Catalog) Price(order *models.Order, maxQuantity int) error {
	it, ok := c.byID[order.ItemID]
	if !ok {
		return &ValidationError{Field: "itemId", Message: fmt.Sprintf("no menu item with id %d", order.ItemID)}
	}
	if order.Quantity < 1 || order.Quantity > maxQuantity {
		return &ValidationError{Field: "quantity", Message: fmt.Sprintf("must be between 1 and %d", maxQuantity)}
	}
	order.ItemName = it.Name
	order.UnitPrice = it.Price
	order.TotalPrice = lineTotal(it.Price, order.Quantity)
	return nil
}

// lineTotal multiplies in minor units so the stored total is exact to the cent.
func lineTotal(unit float64, quantity int) float64 {
	return float64(toMinorUnits(unit)*int64(quantity)) / 100
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
