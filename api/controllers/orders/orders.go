package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/quickdelivery-backend/api/middleware"
	"github.com/angelmondragon/quickdelivery-backend/api/responses"
	"github.com/angelmondragon/quickdelivery-backend/api/validators"
	internalorders "github.com/angelmondragon/quickdelivery-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
)

const (
	defaultListLimit = 20
	maxListLimit     = 50
)

type cancelOptionsResponse struct {
	Reasons []string `json:"reasons"`
}

// OrderList returns the session's orders, newest first.
func OrderList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := sessionFrom(w, r, svc, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(list) > limit {
			list = list[:limit]
		}
		responses.WriteSuccess(w, list)
	}
}

func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := sessionFrom(w, r, svc, logg)
		if !ok {
			return
		}
		orderID, ok := orderParam(w, r, logg)
		if !ok {
			return
		}
		view, err := svc.Get(r.Context(), sessionID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// OrderCancelReasons lists the reasons a customer can pick when cancelling.
func OrderCancelReasons() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, cancelOptionsResponse{Reasons: internalorders.CancelReasons()})
	}
}

func OrderCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := sessionFrom(w, r, svc, logg)
		if !ok {
			return
		}
		orderID, ok := orderParam(w, r, logg)
		if !ok {
			return
		}
		var body internalorders.CancelInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Note = validators.SanitizeText(body.Note)
		view, err := svc.Cancel(r.Context(), sessionID, orderID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func OrderRate(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := sessionFrom(w, r, svc, logg)
		if !ok {
			return
		}
		orderID, ok := orderParam(w, r, logg)
		if !ok {
			return
		}
		var body internalorders.RateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Review = validators.SanitizeText(body.Review)
		view, err := svc.Rate(r.Context(), sessionID, orderID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func sessionFrom(w http.ResponseWriter, r *http.Request, svc internalorders.Service, logg *logger.Logger) (string, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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

func orderParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id required").
			WithDetails(map[string]any{"field": "orderId"}))
		return "", false
	}
	return orderID, true
}
