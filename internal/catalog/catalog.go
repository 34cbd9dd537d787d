package catalog

import (
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Variant is an alternative pack size sold under the same product id.
type Variant struct {
	Unit  string      `json:"unit"`
	Price types.Paise `json:"price_paise"`
	MRP   types.Paise `json:"mrp_paise"`
	SKU   string      `json:"sku"`
}

type Product struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Slug       string      `json:"slug"`
	CategoryID string      `json:"category_id"`
	Brand      string      `json:"brand,omitempty"`
	Unit       string      `json:"unit"`
	Price      types.Paise `json:"price_paise"`
	MRP        types.Paise `json:"mrp_paise"`
	StockQty   int         `json:"stock_qty"`
	InStock    bool        `json:"in_stock"`
	Variants   []Variant   `json:"variants,omitempty"`
}

// DiscountPercent is the saving against MRP, rounded down.
func (p Product) DiscountPercent() int {
	if p.MRP <= 0 || p.Price >= p.MRP {
		return 0
	}
	return int((p.MRP - p.Price) * 100 / p.MRP)
}

// Reader is the read-only catalog surface used by the cart.
type Reader interface {
	Get(id string) (Product, error)
	Resolve(productID, unit string) (types.LineItem, Product, error)
}

// Catalog is an immutable in-memory product index.
type Catalog struct {
	categories []Category
	products   []Product
	byID       map[string]Product
}

// New builds the compiled-in catalog.
func New() *Catalog {
	return NewFrom(defaultCategories, defaultProducts)
}

// NewFrom builds a catalog from the given data. Later duplicates win.
func NewFrom(categories []Category, products []Product) *Catalog {
	c := &Catalog{
		categories: append([]Category(nil), categories...),
		products:   append([]Product(nil), products...),
		byID:       make(map[string]Product, len(products)),
	}
	for _, p := range products {
		c.byID[p.ID] = p
	}
	return c
}

func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// List returns products sorted by name, optionally filtered by category.
func (c *Catalog) List(categoryID string) []Product {
	categoryID = strings.TrimSpace(categoryID)
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if categoryID != "" && p.CategoryID != categoryID {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) Get(id string) (Product, error) {
	p, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, nil
}

// Resolve prices the product in the requested pack size. An empty unit selects
// the product's default unit. The returned line carries quantity zero.
func (c *Catalog) Resolve(productID, unit string) (types.LineItem, Product, error) {
	p, err := c.Get(productID)
	if err != nil {
		return types.LineItem{}, Product{}, err
	}
	unit = strings.TrimSpace(unit)
	if unit == "" || unit == p.Unit {
		return types.LineItem{ProductID: p.ID, Name: p.Name, Unit: p.Unit, UnitPrice: p.Price, MRP: p.MRP}, p, nil
	}
	for _, v := range p.Variants {
		if v.Unit == unit {
			return types.LineItem{ProductID: p.ID, Name: p.Name, Unit: v.Unit, UnitPrice: v.Price, MRP: v.MRP}, p, nil
		}
	}
	return types.LineItem{}, Product{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown pack size").
		WithDetails(map[string]any{"product_id": p.ID, "unit": unit})
}
