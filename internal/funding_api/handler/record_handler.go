package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/funding_api/middleware"
	"github.com/funding-audit-ledger/internal/funding_api/service"
)

// RecordHandler handles HTTP requests for funding record operations
type RecordHandler struct {
	recordService  service.RecordService
	historyService service.HistoryService
	logger         *slog.Logger
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(logger *slog.Logger, recordService service.RecordService, historyService service.HistoryService) *RecordHandler {
	return &RecordHandler{
		recordService:  recordService,
		historyService: historyService,
		logger:         logger,
	}
}

// SaveDraft creates the record for a period or updates its draft
func (h *RecordHandler) SaveDraft(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}

	var req SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	fundNeedID, err := uuid.Parse(req.FundNeedID)
	if err != nil {
		RespondBadRequest(c, "Invalid fund need ID")
		return
	}

	rec, err := h.recordService.SaveDraft(c.Request.Context(), middleware.GetActor(c), service.DraftInput{
		Kind:       kind,
		FundNeedID: fundNeedID,
		Year:       req.Year,
		Month:      req.Month,
		Amount:     req.Amount,
		Remark:     req.Remark,
	})
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, toRecordResponse(rec))
}

// Submit moves a draft into reconciliation
func (h *RecordHandler) Submit(c *gin.Context) {
	kind, id, ok := h.recordParams(c)
	if !ok {
		return
	}

	rec, err := h.recordService.Submit(c.Request.Context(), middleware.GetActor(c), kind, id)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, toRecordResponse(rec))
}

// Delete removes a record that has not been approved
func (h *RecordHandler) Delete(c *gin.Context) {
	kind, id, ok := h.recordParams(c)
	if !ok {
		return
	}

	if err := h.recordService.Delete(c.Request.Context(), middleware.GetActor(c), kind, id); err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondNoContent(c)
}

// GetByID retrieves a record, returns 404 if not found
func (h *RecordHandler) GetByID(c *gin.Context) {
	kind, id, ok := h.recordParams(c)
	if !ok {
		return
	}

	rec, err := h.recordService.Get(c.Request.Context(), middleware.GetActor(c), kind, id)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, toRecordResponse(rec))
}

// List retrieves a page of records of one kind
func (h *RecordHandler) List(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}

	var (
		filter     RecordListQuery
		pagination PaginationParams
	)
	if err := c.ShouldBindQuery(&filter); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	query := service.RecordQuery{
		Kind:    kind,
		Year:    filter.Year,
		Month:   filter.Month,
		Page:    pagination.Page,
		PerPage: pagination.PerPage,
	}
	if filter.FundNeedID != "" {
		query.FundNeedID = uuid.MustParse(filter.FundNeedID)
	}
	if filter.Status != "" {
		status, valid := shared.ParseRecordStatus(filter.Status)
		if !valid {
			RespondBadRequest(c, "Invalid record status")
			return
		}
		query.Status = status
	}

	recs, err := h.recordService.List(c.Request.Context(), middleware.GetActor(c), query)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, toRecordResponses(recs))
}

// History retrieves the paginated status trail of a record
func (h *RecordHandler) History(c *gin.Context) {
	kind, id, ok := h.recordParams(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	events, total, err := h.historyService.RecordHistory(c.Request.Context(), middleware.GetActor(c), kind, id, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, events, pagination.Page, pagination.PerPage, int(total))
}

func (h *RecordHandler) kindParam(c *gin.Context) (shared.RecordKind, bool) {
	kind, ok := shared.ParseRecordKind(c.Param("kind"))
	if !ok {
		RespondBadRequest(c, "Invalid record kind")
		return "", false
	}
	return kind, true
}

func (h *RecordHandler) recordParams(c *gin.Context) (shared.RecordKind, uuid.UUID, bool) {
	kind, ok := h.kindParam(c)
	if !ok {
		return "", uuid.Nil, false
	}

	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid record ID")
		return "", uuid.Nil, false
	}
	return kind, id, true
}
