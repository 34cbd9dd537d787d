// Package cart exposes the session cart over HTTP. Every handler expects the
// CartSession middleware to have resolved X-Session-Id.
package cart

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/quickdelivery-backend/api/middleware"
	"github.com/angelmondragon/quickdelivery-backend/api/responses"
	"github.com/angelmondragon/quickdelivery-backend/api/validators"
	"github.com/angelmondragon/quickdelivery-backend/internal/address"
	cartsvc "github.com/angelmondragon/quickdelivery-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
)

type updateQuantityRequest struct {
	Unit     string `json:"unit"`
	Quantity int    `json:"quantity" validate:"min=0,max=50"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		view, err := svc.View(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		view, err := svc.Clear(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddItem merges a product into the cart. Adding an existing
// (product, unit) line increases its quantity.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		var body cartsvc.AddItemInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.AddItem(r.Context(), sessionID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// CartUpdateQuantity sets a line's quantity. Zero removes the line.
func CartUpdateQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		productID, ok := productParam(w, r, logg)
		if !ok {
			return
		}
		var body updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.UpdateQuantity(r.Context(), sessionID, productID, strings.TrimSpace(body.Unit), body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartRemoveItem drops a product line. Without ?unit= every pack size of the
// product is removed.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		productID, ok := productParam(w, r, logg)
		if !ok {
			return
		}
		unit := strings.TrimSpace(r.URL.Query().Get("unit"))
		view, err := svc.RemoveItem(r.Context(), sessionID, productID, unit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartApplyCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		var body applyCouponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.ApplyCoupon(r.Context(), sessionID, body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartRemoveCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		view, err := svc.RemoveCoupon(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartAddresses(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		addresses, err := svc.Addresses(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, addresses)
	}
}

func CartAddAddress(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		var body address.Input
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saved, err := svc.AddAddress(r.Context(), sessionID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, saved)
	}
}

func requireSession(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, logg *logger.Logger) (string, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return "", false
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id required").
			WithDetails(map[string]any{"field": "X-Session-Id"}))
		return "", false
	}
	return sessionID, true
}

func productParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "productId"))
	if id == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id required").
			WithDetails(map[string]any{"field": "productId"}))
		return "", false
	}
	return id, true
}
