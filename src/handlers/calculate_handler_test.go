package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/navrlluis/crypto-tax/src/config"
	"github.com/navrlluis/crypto-tax/src/logger"
	"github.com/navrlluis/crypto-tax/src/models"
	"github.com/navrlluis/crypto-tax/src/services"
)

type stubCalculationService struct {
	result  *services.CalculationResult
	err     error
	lastReq services.CalculationRequest
}

func (s *stubCalculationService) Calculate(req services.CalculationRequest) (*services.CalculationResult, error) {
	s.lastReq = req
	return s.result, s.err
}

func (s *stubCalculationService) RecentCalculations(limit int) ([]models.CalculationRecord, error) {
	return nil, nil
}

func setupTest(t *testing.T) {
	t.Helper()
	logger.InitLogger("error")
	config.Cfg = &config.AppConfig{MaxBodySizeBytes: 1 << 20}
}

func postCalculate(handler *CalculationHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.HandleCalculate(rr, req)
	return rr
}

func TestHandleCalculateSuccess(t *testing.T) {
	setupTest(t)
	stub := &stubCalculationService{
		result: &services.CalculationResult{
			Summary: models.Summary{Gains: 50, NetPosition: 50, TotalTransactions: 3, Errors: []string{}, EstimatedTaxLiability: 9.5},
		},
	}
	handler := NewCalculationHandler(stub)

	rr := postCalculate(handler, `{
		"email": "user@example.com",
		"nif": "12345678A",
		"nombre": "Juan Garcia",
		"csv_content": "Date(UTC),Coin,Change\n2024-01-01 00:00:00,BTC,1",
		"exchange": "Binance"
	}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp["status"] != "success" {
		t.Errorf("expected status success, got %v", resp["status"])
	}
	if resp["exchange"] != "binance" {
		t.Errorf("expected exchange lowered to binance, got %v", resp["exchange"])
	}
	if stub.lastReq.TaxID != "12345678A" || stub.lastReq.FilerName != "Juan Garcia" {
		t.Errorf("identity metadata not forwarded: %+v", stub.lastReq)
	}
}

func TestHandleCalculateMissingFields(t *testing.T) {
	setupTest(t)
	handler := NewCalculationHandler(&stubCalculationService{})

	rr := postCalculate(handler, `{"email": "user@example.com"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", rr.Code)
	}
}

func TestHandleCalculateInvalidJSON(t *testing.T) {
	setupTest(t)
	handler := NewCalculationHandler(&stubCalculationService{})

	rr := postCalculate(handler, "not json")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", rr.Code)
	}
}

func TestHandleCalculateNoTransactionsIsRejected(t *testing.T) {
	setupTest(t)
	handler := NewCalculationHandler(&stubCalculationService{err: services.ErrNoTransactions})

	rr := postCalculate(handler, `{
		"email": "user@example.com",
		"nif": "12345678A",
		"nombre": "Juan Garcia",
		"csv_content": "Date(UTC),Coin,Change\ngarbage"
	}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 when nothing usable was found, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "No transactions parsed") {
		t.Errorf("expected rejection message, got %s", rr.Body.String())
	}
}

func TestHandleCalculateDefaultsExchangeToBinance(t *testing.T) {
	setupTest(t)
	stub := &stubCalculationService{result: &services.CalculationResult{Summary: models.Summary{Errors: []string{}}}}
	handler := NewCalculationHandler(stub)

	postCalculate(handler, `{
		"email": "user@example.com",
		"nif": "12345678A",
		"nombre": "Juan Garcia",
		"csv_content": "Date(UTC),Coin,Change\n2024-01-01 00:00:00,BTC,1"
	}`)

	if stub.lastReq.Exchange != "binance" {
		t.Errorf("expected default exchange binance, got %q", stub.lastReq.Exchange)
	}
}

func TestWebhookAuthMiddleware(t *testing.T) {
	setupTest(t)
	protected := WebhookAuthMiddleware("top-secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		secret   string
		wantCode int
	}{
		{"missing secret", "", http.StatusUnauthorized},
		{"wrong secret", "guess", http.StatusUnauthorized},
		{"correct secret", "top-secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/calculate", nil)
			if tt.secret != "" {
				req.Header.Set("X-Webhook-Secret", tt.secret)
			}
			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)
			if rr.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rr.Code)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	HandleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %v", resp["status"])
	}
}
