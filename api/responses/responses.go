package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	// A failed encode means the client went away after the header was sent.
	_ = writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps err onto the error envelope. Untyped errors become INTERNAL
// and never leak their message.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	apiErr := types.APIError{Code: string(typed.Code()), Message: meta.PublicMessage}
	if meta.Exposed() && typed.Message() != "" {
		apiErr.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}

	logCtx := logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
	logCtx = logg.WithField(logCtx, "status", meta.HTTPStatus)
	if meta.HTTPStatus >= http.StatusInternalServerError {
		logg.Error(logCtx, "request.error", err)
	} else {
		logg.Warn(logCtx, "request.rejected")
	}

	if encErr := writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: apiErr}); encErr != nil {
		logg.Warn(logg.WithField(logCtx, "encode_error", encErr.Error()), "error envelope not delivered")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}
