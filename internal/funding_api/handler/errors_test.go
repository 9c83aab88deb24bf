package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/funding-audit-ledger/internal/domain/shared"
)

func TestRespondWithDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"PermissionDenied", shared.PermissionDeniedError{UserID: "u", Resource: "reconciliation", Action: "audit"}, http.StatusForbidden, "FORBIDDEN"},
		{"NotFound", shared.NotFoundError{Resource: "record", ID: "x"}, http.StatusNotFound, "NOT_FOUND"},
		{"Conflict", shared.ConflictError{RecordID: uuid.New(), CurrentStatus: shared.RecordStatusApproved}, http.StatusConflict, "CONFLICT"},
		{"InvalidState", shared.InvalidStateError{RecordID: uuid.New()}, http.StatusConflict, "INVALID_STATE"},
		{"DuplicatePeriod", shared.DuplicatePeriodError{Kind: shared.RecordKindPredicted, Year: 2024, Month: 1}, http.StatusConflict, "DUPLICATE_PERIOD"},
		{"IncompleteDecision", shared.IncompleteDecisionError{RowIDs: []string{"a"}}, http.StatusUnprocessableEntity, "INCOMPLETE_DECISION"},
		{"Validation", shared.ValidationError{Field: "reason", Message: "too short"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"Wrapped", fmt.Errorf("submit audit: %w", shared.IncompleteDecisionError{RowIDs: []string{"b"}}), http.StatusUnprocessableEntity, "INCOMPLETE_DECISION"},
		{"Unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter()
			router.GET("/", func(c *gin.Context) {
				RespondWithDomainError(c, newTestLogger(), tt.err)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			resp := decode[interface{}](t, w)
			if assert.NotNil(t, resp.Error) {
				assert.Equal(t, tt.code, resp.Error.Code)
			}
			assert.NotEmpty(t, resp.CorrelationID)
		})
	}
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse([]int{1, 2}, 2, 10, 21)

	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, 21, resp.Meta.TotalItems)
	assert.Equal(t, 2, resp.Meta.Page)
}
