package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/quickdelivery-backend/api/middleware"
	"github.com/angelmondragon/quickdelivery-backend/api/responses"
	"github.com/angelmondragon/quickdelivery-backend/api/validators"
	"github.com/angelmondragon/quickdelivery-backend/internal/payments"
	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
)

type payRequest struct {
	Method    string `json:"method" validate:"required"`
	AddressID string `json:"address_id" validate:"required"`
	Contact   string `json:"contact" validate:"omitempty,len=10,numeric"`
}

type confirmRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING SUCCESS FAILED"`
}

// CheckoutPay places a COD order or opens a UPI attempt for the session cart.
func CheckoutPay(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := paymentSession(w, r, svc, logg)
		if !ok {
			return
		}

		var body payRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(body.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment method").
				WithDetails(map[string]any{"field": "method"}))
			return
		}

		contact := strings.TrimSpace(body.Contact)
		if contact == "" {
			contact = middleware.PhoneFromContext(r.Context())
		}

		outcome, err := svc.Pay(r.Context(), payments.PayInput{
			SessionID: sessionID,
			UserID:    middleware.UserIDFromContext(r.Context()),
			Method:    method,
			AddressID: strings.TrimSpace(body.AddressID),
			Contact:   contact,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusAccepted
		if outcome.Order != nil {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, outcome)
	}
}

func PaymentPending(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := paymentSession(w, r, svc, logg)
		if !ok {
			return
		}
		pending, err := svc.Pending(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pending)
	}
}

// PaymentConfirm handles the status the gateway redirect carried back.
func PaymentConfirm(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := paymentSession(w, r, svc, logg)
		if !ok {
			return
		}
		var body confirmRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseGatewayStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]any{"field": "status"}))
			return
		}
		outcome, err := svc.Confirm(r.Context(), sessionID, status)
		writeOutcome(w, r, logg, outcome, err)
	}
}

// PaymentAwait long-polls the gateway. The poll stops when the client
// disconnects.
func PaymentAwait(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := paymentSession(w, r, svc, logg)
		if !ok {
			return
		}
		outcome, err := svc.Await(r.Context(), sessionID)
		writeOutcome(w, r, logg, outcome, err)
	}
}

func PaymentRetry(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := paymentSession(w, r, svc, logg)
		if !ok {
			return
		}
		outcome, err := svc.Retry(r.Context(), sessionID)
		writeOutcome(w, r, logg, outcome, err)
	}
}

func writeOutcome(w http.ResponseWriter, r *http.Request, logg *logger.Logger, outcome payments.Outcome, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	switch outcome.Status {
	case enums.PaymentAttemptFailed:
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment failed, you can retry").
			WithDetails(map[string]any{"pending": outcome.Pending}))
	case enums.PaymentAttemptTimedOut:
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodePaymentTimeout, "payment confirmation timed out, you can retry").
			WithDetails(map[string]any{"pending": outcome.Pending}))
	default:
		responses.WriteSuccess(w, outcome)
	}
}

func paymentSession(w http.ResponseWriter, r *http.Request, svc payments.Service, logg *logger.Logger) (string, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
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
