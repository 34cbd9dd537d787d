package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/angelmondragon/quickdelivery-backend/api/responses"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/phonepe"
)

const maxCallbackBytes = 64 << 10

type callbackHandler interface {
	HandleCallback(ctx context.Context, envelope phonepe.CallbackEnvelope, checksum string) error
}

// PhonePeWebhook accepts the gateway's server-to-server payment callback.
func PhonePeWebhook(svc callbackHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read callback body"))
			return
		}

		var envelope phonepe.CallbackEnvelope
		if err := json.Unmarshal(payload, &envelope); err != nil || envelope.Response == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback body"))
			return
		}

		if err := svc.HandleCallback(r.Context(), envelope, r.Header.Get(phonepe.ChecksumHeader)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
