package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/quickdelivery-backend/api/responses"
	"github.com/angelmondragon/quickdelivery-backend/internal/catalog"
	"github.com/angelmondragon/quickdelivery-backend/internal/coupons"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
)

// productResponse adds the derived MRP saving to a catalog product.
type productResponse struct {
	catalog.Product
	DiscountPercent int `json:"discount_percent"`
}

func newProductResponse(p catalog.Product) productResponse {
	return productResponse{Product: p, DiscountPercent: p.DiscountPercent()}
}

func CatalogCategories(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, c.Categories())
	}
}

// CatalogProducts lists products, optionally filtered by ?category=.
func CatalogProducts(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products := c.List(strings.TrimSpace(r.URL.Query().Get("category")))
		out := make([]productResponse, 0, len(products))
		for _, p := range products {
			out = append(out, newProductResponse(p))
		}
		responses.WriteSuccess(w, out)
	}
}

func CatalogProduct(c *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "productId"))
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id required"))
			return
		}
		product, err := c.Get(id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(product))
	}
}

func CouponsList(resolver *coupons.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, resolver.List())
	}
}
