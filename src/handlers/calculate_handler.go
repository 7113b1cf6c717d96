package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/navrlluis/crypto-tax/src/config"
	"github.com/navrlluis/crypto-tax/src/logger"
	"github.com/navrlluis/crypto-tax/src/models"
	"github.com/navrlluis/crypto-tax/src/services"
	"github.com/navrlluis/crypto-tax/src/utils"
)

type CalculationHandler struct {
	calculationService services.CalculationService
}

func NewCalculationHandler(service services.CalculationService) *CalculationHandler {
	return &CalculationHandler{
		calculationService: service,
	}
}

// calculateRequestBody mirrors what the form automation posts. Field names
// follow the upstream form (nif = Spanish tax ID, nombre = filer name).
type calculateRequestBody struct {
	Email      string `json:"email"`
	NIF        string `json:"nif"`
	Nombre     string `json:"nombre"`
	CSVContent string `json:"csv_content"`
	Exchange   string `json:"exchange"`
}

type calculateResponseBody struct {
	Status      string         `json:"status"`
	Email       string         `json:"email"`
	Nombre      string         `json:"nombre"`
	NIF         string         `json:"nif"`
	Exchange    string         `json:"exchange"`
	Summary     models.Summary `json:"summary"`
	SkippedRows int            `json:"skipped_rows"`
	FromCache   bool           `json:"from_cache"`
	Timestamp   string         `json:"timestamp"`
}

func (h *CalculationHandler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxBodySizeBytes)

	var body calculateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.L.Warn("Failed to decode calculate request body", "error", err)
		utils.SendJSONError(w, "No JSON data provided or body too large", http.StatusBadRequest)
		return
	}

	if body.Email == "" || body.NIF == "" || body.Nombre == "" || body.CSVContent == "" {
		utils.SendJSONError(w, "Missing required fields: email, nif, nombre, csv_content", http.StatusBadRequest)
		return
	}

	exchange := strings.ToLower(body.Exchange)
	if exchange == "" {
		exchange = "binance"
	}

	logger.L.Info("Processing calculation request", "email", body.Email, "exchange", exchange)

	result, err := h.calculationService.Calculate(services.CalculationRequest{
		Email:      body.Email,
		TaxID:      body.NIF,
		FilerName:  body.Nombre,
		Exchange:   exchange,
		CSVContent: body.CSVContent,
	})
	if err != nil {
		if errors.Is(err, services.ErrNoTransactions) {
			logger.L.Warn("Calculation rejected: no transactions parsed", "email", body.Email)
			utils.SendJSONError(w, "No transactions parsed from CSV", http.StatusBadRequest)
		} else if errors.Is(err, services.ErrParsingFailed) {
			logger.L.Warn("Calculation rejected: CSV parsing failed", "email", body.Email, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error parsing CSV content: %v", err), http.StatusBadRequest)
		} else {
			logger.L.Error("Internal error processing calculation", "email", body.Email, "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the calculation. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(calculateResponseBody{
		Status:      "success",
		Email:       body.Email,
		Nombre:      body.Nombre,
		NIF:         body.NIF,
		Exchange:    exchange,
		Summary:     result.Summary,
		SkippedRows: result.SkippedRows,
		FromCache:   result.FromCache,
		Timestamp:   time.Now().Format(time.RFC3339),
	}); err != nil {
		logger.L.Error("Error encoding JSON response for calculation result", "email", body.Email, "error", err)
	}
}

func (h *CalculationHandler) HandleGetRecentCalculations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.calculationService.RecentCalculations(limit)
	if err != nil {
		logger.L.Error("Error retrieving recent calculations", "error", err)
		utils.SendJSONError(w, "Error retrieving recent calculations", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.CalculationRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		logger.L.Error("Error encoding JSON response for recent calculations", "error", err)
	}
}
