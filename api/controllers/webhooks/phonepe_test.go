package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/phonepe"
)

type fakeCallbackService struct {
	envelope phonepe.CallbackEnvelope
	checksum string
	calls    int
	err      error
}

func (f *fakeCallbackService) HandleCallback(_ context.Context, envelope phonepe.CallbackEnvelope, checksum string) error {
	f.calls++
	f.envelope = envelope
	f.checksum = checksum
	return f.err
}

func TestPhonePeWebhookForwardsEnvelope(t *testing.T) {
	svc := &fakeCallbackService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/phonepe", strings.NewReader(`{"response":"eyJjb2RlIjoiUEFZTUVOVF9TVUNDRVNTIn0="}`))
	req.Header.Set(phonepe.ChecksumHeader, "abc###1")
	rec := httptest.NewRecorder()
	PhonePeWebhook(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.checksum != "abc###1" || svc.envelope.Response == "" {
		t.Fatalf("unexpected forwarded values %+v %q", svc.envelope, svc.checksum)
	}
}

func TestPhonePeWebhookRejectsMalformedBody(t *testing.T) {
	svc := &fakeCallbackService{}
	for _, body := range []string{`not json`, `{}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/phonepe", strings.NewReader(body))
		rec := httptest.NewRecorder()
		PhonePeWebhook(svc, nil).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be called, got %d", svc.calls)
	}
}

func TestPhonePeWebhookChecksumFailure(t *testing.T) {
	svc := &fakeCallbackService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "callback checksum mismatch")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/phonepe", strings.NewReader(`{"response":"eA=="}`))
	rec := httptest.NewRecorder()
	PhonePeWebhook(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
