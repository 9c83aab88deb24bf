package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funding-audit-ledger/internal/domain/shared"
)

// RespondWithDomainError maps a service error to its HTTP status. Typed
// errors keep their payload so callers can show the offending records.
func RespondWithDomainError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		denied     shared.PermissionDeniedError
		notFound   shared.NotFoundError
		conflict   shared.ConflictError
		invalid    shared.InvalidStateError
		duplicate  shared.DuplicatePeriodError
		incomplete shared.IncompleteDecisionError
		validation shared.ValidationError
	)

	switch {
	case errors.As(err, &denied):
		RespondWithError(c, http.StatusForbidden, "FORBIDDEN", err.Error(), gin.H{
			"resource": denied.Resource,
			"action":   denied.Action,
		})
	case errors.As(err, &notFound):
		RespondWithError(c, http.StatusNotFound, "NOT_FOUND", err.Error(), gin.H{
			"resource": notFound.Resource,
			"id":       notFound.ID,
		})
	case errors.As(err, &conflict):
		details := gin.H{}
		if conflict.RecordID != uuid.Nil {
			details["record_id"] = conflict.RecordID.String()
		}
		if conflict.CurrentStatus != "" {
			details["current_status"] = conflict.CurrentStatus
		}
		if conflict.Attempted != "" {
			details["attempted_status"] = conflict.Attempted
		}
		RespondWithError(c, http.StatusConflict, "CONFLICT", err.Error(), details)
	case errors.As(err, &invalid):
		RespondWithError(c, http.StatusConflict, "INVALID_STATE", err.Error(), gin.H{
			"record_id":      invalid.RecordID.String(),
			"module_type":    invalid.ModuleType,
			"current_status": invalid.CurrentStatus,
		})
	case errors.As(err, &duplicate):
		RespondWithError(c, http.StatusConflict, "DUPLICATE_PERIOD", err.Error(), nil)
	case errors.As(err, &incomplete):
		RespondWithError(c, http.StatusUnprocessableEntity, "INCOMPLETE_DECISION", err.Error(), gin.H{
			"row_ids": incomplete.RowIDs,
		})
	case errors.As(err, &validation):
		RespondWithError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), gin.H{
			"field": validation.Field,
		})
	default:
		logger.Error("Unhandled service error", "path", c.Request.URL.Path, "error", err)
		RespondInternalError(c)
	}
}
