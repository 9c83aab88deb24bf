package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/funding_api/middleware"
	"github.com/funding-audit-ledger/internal/funding_api/service"
)

// WithdrawalHandler handles HTTP requests for the withdrawal workflow
type WithdrawalHandler struct {
	withdrawalService service.WithdrawalService
	logger            *slog.Logger
}

// NewWithdrawalHandler creates a new withdrawal handler
func NewWithdrawalHandler(logger *slog.Logger, withdrawalService service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalService: withdrawalService,
		logger:            logger,
	}
}

// Request parks a submitted record in PENDING_WITHDRAWAL
func (h *WithdrawalHandler) Request(c *gin.Context) {
	var req WithdrawalRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	recordID, err := uuid.Parse(req.RecordID)
	if err != nil {
		RespondBadRequest(c, "Invalid record ID")
		return
	}

	created, err := h.withdrawalService.RequestWithdrawal(c.Request.Context(), middleware.GetActor(c), recordID, req.ModuleType, req.Reason)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, toWithdrawalResponse(created))
}

// Cancel withdraws the pending request of a record
func (h *WithdrawalHandler) Cancel(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("recordId"))
	if err != nil {
		RespondBadRequest(c, "Invalid record ID")
		return
	}

	cancelled, err := h.withdrawalService.CancelWithdrawal(c.Request.Context(), middleware.GetActor(c), recordID)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, toWithdrawalResponse(cancelled))
}

// Decide queues an admin decision; the processor applies it asynchronously
func (h *WithdrawalHandler) Decide(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid withdrawal request ID")
		return
	}

	var req WithdrawalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	decision, err := h.withdrawalService.Decide(c.Request.Context(), middleware.GetActor(c), requestID, withdrawal.Outcome(req.Outcome), req.Note)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondAccepted(c, decision)
}

// List retrieves a page of withdrawal requests
func (h *WithdrawalHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	requests, err := h.withdrawalService.List(c.Request.Context(), middleware.GetActor(c), c.Query("status"), pagination.Page, pagination.PerPage)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	out := make([]WithdrawalResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, toWithdrawalResponse(req))
	}
	RespondOK(c, out)
}

// Policies returns the per-module withdrawal policies
func (h *WithdrawalHandler) Policies(c *gin.Context) {
	policies, err := h.withdrawalService.Policies(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, policies)
}
