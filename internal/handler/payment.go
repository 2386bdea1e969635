package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/coursebill/installment-engine/internal/domain"
	"github.com/coursebill/installment-engine/internal/service"
	customError "github.com/coursebill/installment-engine/pkg/errors"
	"github.com/coursebill/installment-engine/pkg/response"
)

type PaymentHandler struct {
	service   *service.PaymentService
	validator *validator.Validate
}

func NewPaymentHandler(service *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreatePlan handles POST /api/v1/plans
func (h *PaymentHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, customError.ErrCodeInvalidPlan, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, customError.ErrCodeInvalidPlan, "Request validation failed", err)
		return
	}

	plan, err := h.service.CreatePlan(r.Context(), &request)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Created(w, plan)
}

// GetPlan handles GET /api/v1/plans/{planId}
func (h *PaymentHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID := mux.Vars(r)["planId"]

	plan, err := h.service.GetPlan(r.Context(), planID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, plan)
}

// InitiatePayment handles POST /api/v1/plans/{planId}/installments/{number}/order
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	planID := vars["planId"]

	number, err := strconv.Atoi(vars["number"])
	if err != nil || number < 1 {
		response.BadRequest(w, customError.ErrCodeInvalidPlan, "Invalid installment number", err)
		return
	}

	order, err := h.service.InitiatePayment(r.Context(), planID, number)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Created(w, order)
}

// SettlementCallback handles POST /api/v1/payments/callback. This is the
// gateway-facing endpoint: any non-2xx answer makes the gateway redeliver.
func (h *PaymentHandler) SettlementCallback(w http.ResponseWriter, r *http.Request) {
	var request domain.SettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, customError.ErrCodeMissingFields, "Invalid callback body", err)
		return
	}

	summary, err := h.service.ProcessSettlement(r.Context(), &request)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, summary)
}

// RunReminderSweep handles POST /api/v1/reminders/sweep, typically invoked
// by an external scheduler
func (h *PaymentHandler) RunReminderSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunReminderSweep(r.Context())
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, result)
}

// GetStats handles GET /api/v1/stats
func (h *PaymentHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, stats)
}

func writeBusinessError(w http.ResponseWriter, err error) {
	var bizErr *customError.BusinessError
	if !errors.As(err, &bizErr) {
		response.InternalServerError(w, customError.ErrCodePersistence, "Unexpected error", err)
		return
	}

	switch bizErr.Code {
	case customError.ErrCodeInvalidPlan, customError.ErrCodeMissingFields, customError.ErrCodeAlreadySettled:
		response.BadRequest(w, bizErr.Code, bizErr.Message, bizErr.Err)
	case customError.ErrCodeSignatureMismatch:
		response.Error(w, http.StatusUnauthorized, bizErr.Code, bizErr.Message, bizErr.Err)
	case customError.ErrCodeConflict:
		response.Conflict(w, bizErr.Code, bizErr.Message)
	case customError.ErrCodeNotFound:
		response.NotFound(w, bizErr.Code, bizErr.Message)
	case customError.ErrCodeGatewayError:
		response.Error(w, http.StatusBadGateway, bizErr.Code, bizErr.Message, bizErr.Err)
	default:
		response.InternalServerError(w, bizErr.Code, bizErr.Message, bizErr.Err)
	}
}
