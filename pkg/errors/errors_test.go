package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodePaymentFailed, status: http.StatusPaymentRequired, publicMsg: "payment failed", retryable: true, detailsOK: true},
		{code: CodePaymentTimeout, status: http.StatusGatewayTimeout, publicMsg: "payment confirmation timed out", retryable: true, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("redis down")
	err := Wrap(CodeDependency, cause, "load cart session")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if err.Error() != "DEPENDENCY_ERROR: load cart session: redis down" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}

func TestIsCodeThroughFmtWrap(t *testing.T) {
	inner := New(CodeStateConflict, "order can no longer be cancelled").WithDetails(map[string]any{"status": "PACKED"})
	outer := fmt.Errorf("cancel: %w", inner)

	if !IsCode(outer, CodeStateConflict) {
		t.Fatal("expected state conflict code through fmt wrap")
	}
	if IsCode(outer, CodeNotFound) {
		t.Fatal("unexpected not found match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatal("plain errors carry no code")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(New(CodePaymentTimeout, "timed out")) {
		t.Fatal("payment timeout should be retryable")
	}
	if Retryable(New(CodeValidation, "bad")) {
		t.Fatal("validation should not be retryable")
	}
	if Retryable(nil) {
		t.Fatal("nil should not be retryable")
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("rate order: %w", New(CodeStateConflict, "order is not delivered yet"))

	if !stdErrors.Is(err, New(CodeStateConflict, "")) {
		t.Fatal("expected match on code")
	}
	if stdErrors.Is(err, New(CodeConflict, "")) {
		t.Fatal("different code must not match")
	}
	if got := CodeOf(err); got != CodeStateConflict {
		t.Fatalf("unexpected code %s", got)
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("plain errors map to internal, got %s", got)
	}
}
