package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/pkg/signature"
	"github.com/avolkhin/shipstream/internal/server/http/dto"
	testhelpers "github.com/avolkhin/shipstream/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func performRequest(t *testing.T, method, path, target string, handler gin.HandlerFunc, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, path, handler)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func webhookBody(t *testing.T) []byte {
	t.Helper()
	payload := map[string]any{
		"id": 100500,
		"line_items": []map[string]any{
			{"id": 1, "sku": "SKU-1", "quantity": 2, "price": "29.90"},
		},
		"shipping_address": map[string]any{
			"name": "Jamie Doe", "address1": "1 Main St", "city": "Springfield",
			"country_code": "US", "zip": "12345",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal webhook payload: %v", err)
	}
	return body
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	verifier := signature.NewHMACVerifier(testhelpers.RandomASCIIString(16, 32))
	handler := NewWebhookHandler(&testhelpers.HandlerFacadeStub{}, verifier, discardLogger())

	resp := performRequest(t, http.MethodPost, "/hook", "/hook", handler.OrderPaid, webhookBody(t),
		map[string]string{SignatureHeader: "bogus"})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestWebhookAcceptsSignedPayload(t *testing.T) {
	verifier := signature.NewHMACVerifier("secret")
	facade := &testhelpers.HandlerFacadeStub{}
	handler := NewWebhookHandler(facade, verifier, discardLogger())

	body := webhookBody(t)
	resp := performRequest(t, http.MethodPost, "/hook", "/hook", handler.OrderPaid, body,
		map[string]string{SignatureHeader: verifier.Sign(body)})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	if len(facade.Ingested) != 1 || facade.Ingested[0].SaleID != "100500" {
		t.Fatalf("unexpected ingested sales %+v", facade.Ingested)
	}
	sale := facade.Ingested[0]
	if len(sale.LineItems) != 1 || sale.LineItems[0].SKU != "SKU-1" || sale.LineItems[0].Price != 29.90 {
		t.Fatalf("unexpected line items %+v", sale.LineItems)
	}
	if sale.Recipient.Name != "Jamie Doe" || sale.Recipient.Country != "US" {
		t.Fatalf("unexpected recipient %+v", sale.Recipient)
	}

	// Auto decision triggers the inline submission attempt.
	if len(facade.Submissions) != 1 {
		t.Fatalf("expected one inline submission, got %v", facade.Submissions)
	}

	var accepted dto.WebhookAccepted
	if err := json.Unmarshal(resp.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if accepted.SaleID != "100500" || len(accepted.Results) != 1 || !accepted.Results[0].Created {
		t.Fatalf("unexpected response %+v", accepted)
	}
}

func TestWebhookInlineSubmissionFailureStill200(t *testing.T) {
	verifier := signature.NewHMACVerifier("secret")
	facade := &testhelpers.HandlerFacadeStub{
		SubmitFn: func(context.Context, int64) (*model.FulfillmentOrder, error) {
			return nil, domainErrors.SupplierCallError{Op: "create order", Err: errors.New("down")}
		},
	}
	handler := NewWebhookHandler(facade, verifier, discardLogger())

	body := webhookBody(t)
	resp := performRequest(t, http.MethodPost, "/hook", "/hook", handler.OrderPaid, body,
		map[string]string{SignatureHeader: verifier.Sign(body)})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 despite submission failure, got %d", resp.Code)
	}
}

func TestWebhookMalformedPayload(t *testing.T) {
	verifier := signature.NewHMACVerifier("secret")
	handler := NewWebhookHandler(&testhelpers.HandlerFacadeStub{}, verifier, discardLogger())

	body := []byte("{not json")
	resp := performRequest(t, http.MethodPost, "/hook", "/hook", handler.OrderPaid, body,
		map[string]string{SignatureHeader: verifier.Sign(body)})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestWebhookEmptyLineItems(t *testing.T) {
	verifier := signature.NewHMACVerifier("secret")
	handler := NewWebhookHandler(&testhelpers.HandlerFacadeStub{}, verifier, discardLogger())

	body := []byte(`{"id": 1, "line_items": []}`)
	resp := performRequest(t, http.MethodPost, "/hook", "/hook", handler.OrderPaid, body,
		map[string]string{SignatureHeader: verifier.Sign(body)})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestFulfillmentGet(t *testing.T) {
	handler := NewFulfillmentHandler(&testhelpers.HandlerFacadeStub{})
	resp := performRequest(t, http.MethodGet, "/f/:id", "/f/7", handler.Get, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var got dto.FulfillmentResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != 7 || got.Status != string(model.StatusPending) {
		t.Fatalf("unexpected response %+v", got)
	}
	if !got.CanRetry {
		t.Fatal("pending primary record must be retryable")
	}
}

func TestFulfillmentGetNotFound(t *testing.T) {
	facade := &testhelpers.HandlerFacadeStub{
		GetFn: func(context.Context, int64) (*model.FulfillmentOrder, error) {
			return nil, domainErrors.ErrNotFound
		},
	}
	handler := NewFulfillmentHandler(facade)
	resp := performRequest(t, http.MethodGet, "/f/:id", "/f/7", handler.Get, nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestFulfillmentGetBadID(t *testing.T) {
	handler := NewFulfillmentHandler(&testhelpers.HandlerFacadeStub{})
	resp := performRequest(t, http.MethodGet, "/f/:id", "/f/abc", handler.Get, nil, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestFulfillmentListLimit(t *testing.T) {
	var gotLimit int
	facade := &testhelpers.HandlerFacadeStub{
		ListFn: func(_ context.Context, limit int) ([]model.FulfillmentOrder, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	handler := NewFulfillmentHandler(facade)
	resp := performRequest(t, http.MethodGet, "/f", "/f?limit=5", handler.List, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if gotLimit != 5 {
		t.Fatalf("expected limit 5, got %d", gotLimit)
	}

	resp = performRequest(t, http.MethodGet, "/f", "/f?limit=junk", handler.List, nil, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.Code)
	}
}

func TestFulfillmentRetryConflicts(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"escalated", domainErrors.ErrAlreadyEscalated, http.StatusConflict},
		{"locked", domainErrors.ErrLockHeld, http.StatusConflict},
		{"profit", domainErrors.ErrNegativeProfitBlocked, http.StatusConflict},
		{"mapping", domainErrors.ErrMissingSupplierMapping, http.StatusConflict},
		{"missing", domainErrors.ErrNotFound, http.StatusNotFound},
		{"supplier", domainErrors.SupplierCallError{Op: "create order", Err: errors.New("down")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			facade := &testhelpers.HandlerFacadeStub{
				SubmitFn: func(context.Context, int64) (*model.FulfillmentOrder, error) {
					return nil, tc.err
				},
			}
			handler := NewFulfillmentHandler(facade)
			resp := performRequest(t, http.MethodPost, "/f/:id/retry", "/f/1/retry", handler.Retry, nil, nil)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.Code)
			}
		})
	}
}

func TestFulfillmentRetryAlreadySubmittedReturnsRecord(t *testing.T) {
	supplierOrderID := "SUP-1"
	facade := &testhelpers.HandlerFacadeStub{
		SubmitFn: func(context.Context, int64) (*model.FulfillmentOrder, error) {
			return nil, domainErrors.ErrAlreadySubmitted
		},
		GetFn: func(_ context.Context, id int64) (*model.FulfillmentOrder, error) {
			return &model.FulfillmentOrder{ID: id, Status: model.StatusOrdered, SupplierOrderID: &supplierOrderID}, nil
		},
	}
	handler := NewFulfillmentHandler(facade)
	resp := performRequest(t, http.MethodPost, "/f/:id/retry", "/f/1/retry", handler.Retry, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for already submitted, got %d", resp.Code)
	}
	var got dto.FulfillmentResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.SupplierOrderID == nil || *got.SupplierOrderID != "SUP-1" {
		t.Fatalf("expected existing supplier order id, got %+v", got.SupplierOrderID)
	}
}

func TestFulfillmentAdminActions(t *testing.T) {
	facade := &testhelpers.HandlerFacadeStub{}
	handler := NewFulfillmentHandler(facade)

	cases := []struct {
		path       string
		handler    gin.HandlerFunc
		wantStatus string
	}{
		{"approve", handler.Approve, string(model.StatusOrdered)},
		{"deliver", handler.Deliver, string(model.StatusDelivered)},
		{"cancel", handler.Cancel, string(model.StatusCancelled)},
		{"return", handler.Return, string(model.StatusReturned)},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp := performRequest(t, http.MethodPost, "/f/:id/"+tc.path, "/f/1/"+tc.path, tc.handler, nil, nil)
			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.Code)
			}
			var got dto.FulfillmentResponse
			if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if got.Status != tc.wantStatus {
				t.Fatalf("expected status %s, got %s", tc.wantStatus, got.Status)
			}
		})
	}
}

func TestFulfillmentAdminGuardViolation(t *testing.T) {
	facade := &testhelpers.HandlerFacadeStub{
		CancelFn: func(context.Context, int64) (*model.FulfillmentOrder, error) {
			return nil, domainErrors.ErrInvalidTransition
		},
	}
	handler := NewFulfillmentHandler(facade)
	resp := performRequest(t, http.MethodPost, "/f/:id/cancel", "/f/1/cancel", handler.Cancel, nil, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestFulfillmentSummary(t *testing.T) {
	handler := NewFulfillmentHandler(&testhelpers.HandlerFacadeStub{})
	resp := performRequest(t, http.MethodGet, "/summary", "/summary", handler.Summary, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var got dto.SummaryResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Total != 1 || got.ByStatus[string(model.StatusPending)] != 1 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestHealthHandler(t *testing.T) {
	handler := NewHealthHandler(testhelpers.HealthCheckerStub{})
	resp := performRequest(t, http.MethodGet, "/health", "/health", handler.Check, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	handler = NewHealthHandler(testhelpers.HealthCheckerStub{Err: errors.New("down")})
	resp = performRequest(t, http.MethodGet, "/health", "/health", handler.Check, nil, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}
