package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funding-audit-ledger/internal/funding_api/middleware"
	"github.com/funding-audit-ledger/internal/funding_api/service"
)

// AuditHandler handles the reconciliation view and audit decisions
type AuditHandler struct {
	reconciliationService service.ReconciliationService
	auditService          service.AuditService
	logger                *slog.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(logger *slog.Logger, reconciliationService service.ReconciliationService, auditService service.AuditService) *AuditHandler {
	return &AuditHandler{
		reconciliationService: reconciliationService,
		auditService:          auditService,
		logger:                logger,
	}
}

// View returns the user/finance comparison rows
func (h *AuditHandler) View(c *gin.Context) {
	var req ReconciliationQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	query := service.ViewQuery{Year: req.Year, Month: req.Month}
	if req.FundNeedID != "" {
		query.FundNeedID = uuid.MustParse(req.FundNeedID)
	}

	rows, err := h.reconciliationService.View(c.Request.Context(), middleware.GetActor(c), query)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, rows)
}

// Propose parses a raw audit entry into a decision without storing it
func (h *AuditHandler) Propose(c *gin.Context) {
	var req DecisionEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	decision, err := h.auditService.ProposeDecision(c.Request.Context(), middleware.GetActor(c), service.DecisionEntry{
		RowID:  req.RowID,
		Value:  req.Value,
		Remark: req.Remark,
	})
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, gin.H{
		"row_id":  decision.RowID,
		"amount":  decimalString(decision.Amount),
		"remark":  decision.Remark,
		"cleared": decision.Cleared(),
	})
}

// Validate reports whether a selection could be submitted as is
func (h *AuditHandler) Validate(c *gin.Context) {
	selection, ok := h.bindSelection(c)
	if !ok {
		return
	}

	if err := h.auditService.ValidateForSubmit(c.Request.Context(), middleware.GetActor(c), selection); err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, gin.H{"valid": true})
}

// SaveDraft stores audit entries without changing record status
func (h *AuditHandler) SaveDraft(c *gin.Context) {
	var req DraftDecisionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.auditService.CommitDraft(c.Request.Context(), middleware.GetActor(c), toDecisionEntries(req.Decisions))
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, DraftResultResponse{Updated: updated})
}

// Submit approves every selected row in one batch
func (h *AuditHandler) Submit(c *gin.Context) {
	selection, ok := h.bindSelection(c)
	if !ok {
		return
	}

	res, err := h.auditService.SubmitAudit(c.Request.Context(), middleware.GetActor(c), selection)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, toBatchResultResponse(res))
}

// Reject rejects every selected row in one batch
func (h *AuditHandler) Reject(c *gin.Context) {
	selection, ok := h.bindSelection(c)
	if !ok {
		return
	}

	res, err := h.auditService.RejectAudit(c.Request.Context(), middleware.GetActor(c), selection)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, toBatchResultResponse(res))
}

func (h *AuditHandler) bindSelection(c *gin.Context) (service.AuditSelection, bool) {
	var req AuditSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return service.AuditSelection{}, false
	}
	return service.AuditSelection{
		RowIDs:    req.RowIDs,
		Decisions: toDecisionEntries(req.Decisions),
		Remark:    req.Remark,
	}, true
}
