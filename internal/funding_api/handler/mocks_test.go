package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/funding-audit-ledger/internal/domain/history"
	"github.com/funding-audit-ledger/internal/domain/reconciliation"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/funding_api/middleware"
	"github.com/funding-audit-ledger/internal/funding_api/service"
	"github.com/funding-audit-ledger/internal/platform/permission"
)

// TypedResponse is a generic version of Response for decoding test payloads
type TypedResponse[T any] struct {
	Data          T          `json:"data"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.CorrelationID(), middleware.Actor())
	return router
}

func performRequest(t *testing.T, router http.Handler, method, path string, body interface{}, actor permission.Actor) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if actor.ID != "" {
		req.Header.Set(middleware.UserIDHeader, actor.ID)
		req.Header.Set(middleware.UserRoleHeader, actor.Role)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) TypedResponse[T] {
	t.Helper()
	var resp TypedResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

var (
	reporter = permission.Actor{ID: "reporter-1", Role: permission.RoleReporter}
	auditor  = permission.Actor{ID: "auditor-1", Role: permission.RoleAuditor}
	admin    = permission.Actor{ID: "admin-1", Role: permission.RoleAdmin}
)

type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) SaveDraft(ctx context.Context, actor permission.Actor, input service.DraftInput) (*record.FundingRecord, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.FundingRecord), args.Error(1)
}

func (m *MockRecordService) Submit(ctx context.Context, actor permission.Actor, kind shared.RecordKind, id uuid.UUID) (*record.FundingRecord, error) {
	args := m.Called(ctx, actor, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.FundingRecord), args.Error(1)
}

func (m *MockRecordService) Delete(ctx context.Context, actor permission.Actor, kind shared.RecordKind, id uuid.UUID) error {
	args := m.Called(ctx, actor, kind, id)
	return args.Error(0)
}

func (m *MockRecordService) Get(ctx context.Context, actor permission.Actor, kind shared.RecordKind, id uuid.UUID) (*record.FundingRecord, error) {
	args := m.Called(ctx, actor, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.FundingRecord), args.Error(1)
}

func (m *MockRecordService) List(ctx context.Context, actor permission.Actor, query service.RecordQuery) ([]*record.FundingRecord, error) {
	args := m.Called(ctx, actor, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*record.FundingRecord), args.Error(1)
}

type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) RecordHistory(ctx context.Context, actor permission.Actor, kind shared.RecordKind, id uuid.UUID, page, perPage int) ([]*history.Event, int64, error) {
	args := m.Called(ctx, actor, kind, id, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*history.Event), args.Get(1).(int64), args.Error(2)
}

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) View(ctx context.Context, actor permission.Actor, query service.ViewQuery) ([]reconciliation.Row, error) {
	args := m.Called(ctx, actor, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconciliation.Row), args.Error(1)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) ProposeDecision(ctx context.Context, actor permission.Actor, entry service.DecisionEntry) (reconciliation.Decision, error) {
	args := m.Called(ctx, actor, entry)
	return args.Get(0).(reconciliation.Decision), args.Error(1)
}

func (m *MockAuditService) ValidateForSubmit(ctx context.Context, actor permission.Actor, selection service.AuditSelection) error {
	args := m.Called(ctx, actor, selection)
	return args.Error(0)
}

func (m *MockAuditService) CommitDraft(ctx context.Context, actor permission.Actor, entries []service.DecisionEntry) (int, error) {
	args := m.Called(ctx, actor, entries)
	return args.Int(0), args.Error(1)
}

func (m *MockAuditService) SubmitAudit(ctx context.Context, actor permission.Actor, selection service.AuditSelection) (*service.BatchResult, error) {
	args := m.Called(ctx, actor, selection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

func (m *MockAuditService) RejectAudit(ctx context.Context, actor permission.Actor, selection service.AuditSelection) (*service.BatchResult, error) {
	args := m.Called(ctx, actor, selection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

type MockWithdrawalService struct {
	mock.Mock
}

func (m *MockWithdrawalService) RequestWithdrawal(ctx context.Context, actor permission.Actor, recordID uuid.UUID, moduleType string, reason string) (*withdrawal.Request, error) {
	args := m.Called(ctx, actor, recordID, moduleType, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Request), args.Error(1)
}

func (m *MockWithdrawalService) CancelWithdrawal(ctx context.Context, actor permission.Actor, recordID uuid.UUID) (*withdrawal.Request, error) {
	args := m.Called(ctx, actor, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Request), args.Error(1)
}

func (m *MockWithdrawalService) Decide(ctx context.Context, actor permission.Actor, requestID uuid.UUID, outcome withdrawal.Outcome, note string) (*withdrawal.Decision, error) {
	args := m.Called(ctx, actor, requestID, outcome, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Decision), args.Error(1)
}

func (m *MockWithdrawalService) List(ctx context.Context, actor permission.Actor, status string, page, perPage int) ([]*withdrawal.Request, error) {
	args := m.Called(ctx, actor, status, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*withdrawal.Request), args.Error(1)
}

func (m *MockWithdrawalService) Policies(ctx context.Context, actor permission.Actor) ([]withdrawal.Policy, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]withdrawal.Policy), args.Error(1)
}
