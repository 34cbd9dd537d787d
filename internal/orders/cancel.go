package orders

import (
	"strings"

	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
)

// OtherReason requires a free-text note.
const OtherReason = "Other (please specify)"

var cancelReasons = []string{
	"Changed my mind about the order",
	"Found a better price elsewhere",
	"Ordered by mistake",
	"Delivery taking too long",
	"Payment method issue",
	"Need to modify items in order",
	"Emergency - cannot receive delivery",
	OtherReason,
}

// CancelReasons returns the reasons a customer may pick from.
func CancelReasons() []string {
	out := make([]string, len(cancelReasons))
	copy(out, cancelReasons)
	return out
}

// CancelInput is the customer's reason for cancelling.
type CancelInput struct {
	Reason string `json:"reason" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

// resolveReason returns the text recorded on the order.
func resolveReason(in CancelInput) (string, error) {
	reason := strings.TrimSpace(in.Reason)
	note := strings.TrimSpace(in.Note)
	known := false
	for _, candidate := range cancelReasons {
		if candidate == reason {
			known = true
			break
		}
	}
	if !known {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "select a cancellation reason").
			WithDetails(map[string]any{"field": "reason", "reasons": CancelReasons()})
	}
	if reason == OtherReason {
		if note == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "provide a reason for cancellation").
				WithDetails(map[string]any{"field": "note"})
		}
		return note, nil
	}
	return reason, nil
}
