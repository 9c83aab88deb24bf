package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/funding_api/service"
)

// SaveDraftRequest represents a request to create or update a record draft.
// A null amount clears the stored amount.
type SaveDraftRequest struct {
	FundNeedID string              `json:"fund_need_id" binding:"required,uuid"`
	Year       int                 `json:"year" binding:"required,min=1"`
	Month      int                 `json:"month" binding:"required,min=1,max=12"`
	Amount     decimal.NullDecimal `json:"amount"`
	Remark     string              `json:"remark" binding:"max=1000"`
}

// RecordResponse represents a funding record in API responses
type RecordResponse struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	FundNeedID  string  `json:"fund_need_id"`
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	Amount      *string `json:"amount"`
	Status      string  `json:"status"`
	Remark      string  `json:"remark,omitempty"`
	AuditAmount *string `json:"audit_amount,omitempty"`
	AuditRemark *string `json:"audit_remark,omitempty"`
	SubmittedBy string  `json:"submitted_by,omitempty"`
	SubmittedAt string  `json:"submitted_at,omitempty"`
	Version     int     `json:"version"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// RecordListQuery represents the filters of the record list endpoint
type RecordListQuery struct {
	FundNeedID string `form:"fund_need_id" binding:"omitempty,uuid"`
	Year       int    `form:"year" binding:"omitempty,min=1"`
	Month      int    `form:"month" binding:"omitempty,min=1,max=12"`
	Status     string `form:"status"`
}

// ReconciliationQuery represents the filters of the reconciliation view
type ReconciliationQuery struct {
	FundNeedID string `form:"fund_need_id" binding:"omitempty,uuid"`
	Year       int    `form:"year" binding:"omitempty,min=1"`
	Month      int    `form:"month" binding:"omitempty,min=1,max=12"`
}

// DecisionEntryRequest represents one raw audit entry
type DecisionEntryRequest struct {
	RowID  string  `json:"row_id" binding:"required"`
	Value  string  `json:"value"`
	Remark *string `json:"remark,omitempty"`
}

// DraftDecisionsRequest represents audit entries saved without submitting
type DraftDecisionsRequest struct {
	Decisions []DecisionEntryRequest `json:"decisions" binding:"required,min=1,dive"`
}

// AuditSelectionRequest represents the rows of a batch audit
type AuditSelectionRequest struct {
	RowIDs    []string               `json:"row_ids" binding:"required,min=1"`
	Decisions []DecisionEntryRequest `json:"decisions" binding:"omitempty,dive"`
	Remark    *string                `json:"remark,omitempty"`
}

// DraftResultResponse reports how many records a draft commit touched
type DraftResultResponse struct {
	Updated int `json:"updated"`
}

// BatchResultResponse reports the records moved by a batch audit
type BatchResultResponse struct {
	Rows    int              `json:"rows"`
	Records []RecordResponse `json:"records"`
}

// WithdrawalRequestBody represents a request to withdraw a submitted record
type WithdrawalRequestBody struct {
	RecordID   string `json:"record_id" binding:"required,uuid"`
	ModuleType string `json:"module_type" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
}

// WithdrawalDecisionRequest represents an admin decision on a pending request
type WithdrawalDecisionRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=approve reject"`
	Note    string `json:"note" binding:"max=1000"`
}

// WithdrawalResponse represents a withdrawal request in API responses
type WithdrawalResponse struct {
	ID           string `json:"id"`
	RecordID     string `json:"record_id"`
	ModuleType   string `json:"module_type"`
	Reason       string `json:"reason"`
	RequestedBy  string `json:"requested_by"`
	RequestedAt  string `json:"requested_at"`
	Status       string `json:"request_status"`
	DecidedBy    string `json:"decided_by,omitempty"`
	DecidedAt    string `json:"decided_at,omitempty"`
	DecisionNote string `json:"decision_note,omitempty"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func toRecordResponse(rec *record.FundingRecord) RecordResponse {
	resp := RecordResponse{
		ID:          rec.ID.String(),
		Kind:        string(rec.Kind),
		FundNeedID:  rec.FundNeedID.String(),
		Year:        rec.Year,
		Month:       rec.Month,
		Amount:      decimalString(rec.Amount),
		Status:      string(rec.Status),
		Remark:      rec.Remark,
		AuditAmount: decimalString(rec.AuditAmount),
		AuditRemark: rec.AuditRemark,
		SubmittedBy: rec.SubmittedBy,
		Version:     rec.Version,
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   rec.UpdatedAt.Format(time.RFC3339),
	}
	if rec.SubmittedAt != nil {
		resp.SubmittedAt = rec.SubmittedAt.Format(time.RFC3339)
	}
	return resp
}

func toRecordResponses(recs []*record.FundingRecord) []RecordResponse {
	out := make([]RecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordResponse(rec))
	}
	return out
}

func toBatchResultResponse(res *service.BatchResult) BatchResultResponse {
	return BatchResultResponse{
		Rows:    res.Rows,
		Records: toRecordResponses(res.Records),
	}
}

func toWithdrawalResponse(req *withdrawal.Request) WithdrawalResponse {
	resp := WithdrawalResponse{
		ID:           req.ID.String(),
		RecordID:     req.RecordID.String(),
		ModuleType:   string(req.ModuleType),
		Reason:       req.Reason,
		RequestedBy:  req.RequestedBy,
		RequestedAt:  req.RequestedAt.Format(time.RFC3339),
		Status:       string(req.Status),
		DecidedBy:    req.DecidedBy,
		DecisionNote: req.DecisionNote,
	}
	if req.DecidedAt != nil {
		resp.DecidedAt = req.DecidedAt.Format(time.RFC3339)
	}
	return resp
}

func toDecisionEntries(in []DecisionEntryRequest) []service.DecisionEntry {
	out := make([]service.DecisionEntry, 0, len(in))
	for _, d := range in {
		out = append(out, service.DecisionEntry{RowID: d.RowID, Value: d.Value, Remark: d.Remark})
	}
	return out
}

func decimalString(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}
