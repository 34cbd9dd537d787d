package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/quickdelivery-backend/api/middleware"
	internalorders "github.com/angelmondragon/quickdelivery-backend/internal/orders"
	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

type stubOrdersService struct {
	views      map[string]internalorders.OrderView
	cancelled  internalorders.CancelInput
	rated      internalorders.RateInput
	cancelErr  error
	lastSessID string
}

func (s *stubOrdersService) Place(context.Context, internalorders.PlaceInput) (types.Order, error) {
	panic("not used")
}

func (s *stubOrdersService) Cancel(_ context.Context, sessionID, orderID string, input internalorders.CancelInput) (internalorders.OrderView, error) {
	s.lastSessID = sessionID
	s.cancelled = input
	if s.cancelErr != nil {
		return internalorders.OrderView{}, s.cancelErr
	}
	view := s.views[orderID]
	view.Status = enums.OrderStatusCancelled
	return view, nil
}

func (s *stubOrdersService) Rate(_ context.Context, sessionID, orderID string, input internalorders.RateInput) (internalorders.OrderView, error) {
	s.lastSessID = sessionID
	s.rated = input
	return s.views[orderID], nil
}

func (s *stubOrdersService) List(_ context.Context, sessionID string) ([]internalorders.OrderView, error) {
	s.lastSessID = sessionID
	out := make([]internalorders.OrderView, 0, len(s.views))
	for _, v := range s.views {
		out = append(out, v)
	}
	return out, nil
}

func (s *stubOrdersService) Get(_ context.Context, sessionID, orderID string) (internalorders.OrderView, error) {
	s.lastSessID = sessionID
	view, ok := s.views[orderID]
	if !ok {
		return internalorders.OrderView{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return view, nil
}

func (s *stubOrdersService) AdvanceDue(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func newRouter(svc internalorders.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "orders-controller-test", Output: io.Discard})
	r := chi.NewRouter()
	r.Get("/orders", OrderList(svc, logg))
	r.Get("/orders/cancel-reasons", OrderCancelReasons())
	r.Get("/orders/{orderId}", OrderDetail(svc, logg))
	r.Post("/orders/{orderId}/cancel", OrderCancel(svc, logg))
	r.Post("/orders/{orderId}/rating", OrderRate(svc, logg))
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(middleware.WithSessionID(req.Context(), "sess-orders"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleViews() map[string]internalorders.OrderView {
	order := types.Order{ID: "QD-1700000000000-ABCDEFGHI", Status: enums.OrderStatusPlaced, Payment: types.NewCODPayment()}
	return map[string]internalorders.OrderView{order.ID: {Order: order, MinutesLeft: 25, CanCancel: true}}
}

func TestOrderDetailAndNotFound(t *testing.T) {
	svc := &stubOrdersService{views: sampleViews()}
	h := newRouter(svc)

	rec := serve(h, http.MethodGet, "/orders/QD-1700000000000-ABCDEFGHI", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var payload struct {
		Data struct {
			ID          string `json:"id"`
			MinutesLeft int    `json:"minutes_left"`
			CanCancel   bool   `json:"can_cancel"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data.MinutesLeft != 25 || !payload.Data.CanCancel {
		t.Fatalf("unexpected view %+v", payload.Data)
	}
	if svc.lastSessID != "sess-orders" {
		t.Fatalf("expected session to be forwarded, got %q", svc.lastSessID)
	}

	if rec := serve(h, http.MethodGet, "/orders/QD-missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestOrderList(t *testing.T) {
	h := newRouter(&stubOrdersService{views: sampleViews()})
	rec := serve(h, http.MethodGet, "/orders", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var payload struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Data) != 1 {
		t.Fatalf("expected 1 order got %d", len(payload.Data))
	}
}

func TestOrderListLimit(t *testing.T) {
	views := map[string]internalorders.OrderView{}
	for _, id := range []string{"QD-1", "QD-2", "QD-3"} {
		views[id] = internalorders.OrderView{Order: types.Order{ID: id, Status: enums.OrderStatusPlaced, Payment: types.NewCODPayment()}}
	}
	h := newRouter(&stubOrdersService{views: views})

	rec := serve(h, http.MethodGet, "/orders?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var payload struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Data) != 2 {
		t.Fatalf("expected 2 orders got %d", len(payload.Data))
	}

	for _, q := range []string{"limit=0", "limit=51", "limit=ten"} {
		if rec := serve(h, http.MethodGet, "/orders?"+q, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", q, rec.Code)
		}
	}
}

func TestOrderCancelForwardsReason(t *testing.T) {
	svc := &stubOrdersService{views: sampleViews()}
	h := newRouter(svc)

	rec := serve(h, http.MethodPost, "/orders/QD-1700000000000-ABCDEFGHI/cancel", `{"reason":"Ordered by mistake"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.cancelled.Reason != "Ordered by mistake" {
		t.Fatalf("unexpected reason %q", svc.cancelled.Reason)
	}
}

func TestOrderCancelRequiresReason(t *testing.T) {
	svc := &stubOrdersService{views: sampleViews()}
	rec := serve(newRouter(svc), http.MethodPost, "/orders/QD-1700000000000-ABCDEFGHI/cancel", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestOrderCancelStateConflict(t *testing.T) {
	svc := &stubOrdersService{
		views:     sampleViews(),
		cancelErr: pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled"),
	}
	rec := serve(newRouter(svc), http.MethodPost, "/orders/QD-1700000000000-ABCDEFGHI/cancel", `{"reason":"Ordered by mistake"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "order can no longer be cancelled") {
		t.Fatalf("expected user-visible message, got %s", rec.Body.String())
	}
}

func TestOrderRateValidatesStars(t *testing.T) {
	svc := &stubOrdersService{views: sampleViews()}
	h := newRouter(svc)

	if rec := serve(h, http.MethodPost, "/orders/QD-1700000000000-ABCDEFGHI/rating", `{"stars":6}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	rec := serve(h, http.MethodPost, "/orders/QD-1700000000000-ABCDEFGHI/rating", `{"stars":4,"review":"  quick\u0007 "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.rated.Stars != 4 || svc.rated.Review != "quick" {
		t.Fatalf("unexpected rating %+v", svc.rated)
	}
}

func TestOrderCancelReasons(t *testing.T) {
	rec := serve(newRouter(&stubOrdersService{}), http.MethodGet, "/orders/cancel-reasons", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), internalorders.OtherReason) {
		t.Fatalf("expected reasons list, got %s", rec.Body.String())
	}
}
