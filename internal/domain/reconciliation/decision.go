package reconciliation

import (
	"strings"

	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Decision is a proposed audit outcome for one row. A cleared decision has
// neither amount nor remark.
type Decision struct {
	RowID  string              `json:"row_id"`
	Amount decimal.NullDecimal `json:"amount"`
	Remark *string             `json:"remark,omitempty"`
}

// Cleared reports whether the decision was reset by an empty entry
func (d Decision) Cleared() bool {
	return !d.Amount.Valid
}

// ParseAmount strictly parses a free-text amount. Empty input yields a null
// amount; anything that is not a number, or carries sub-cent digits, is a
// ValidationError.
func ParseAmount(raw string) (decimal.NullDecimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.NullDecimal{}, nil
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.NullDecimal{}, shared.ValidationError{Field: "audit_amount", Message: "not a number: " + trimmed}
	}
	parsed := decimal.NewNullDecimal(amount)
	if err := record.CheckAmountScale("audit_amount", parsed); err != nil {
		return decimal.NullDecimal{}, err
	}
	return parsed, nil
}

// ProposeDecision parses a raw entry for a row. A remark is only kept when an
// amount is present.
func ProposeDecision(rowID, rawValue string, remark *string) (Decision, error) {
	amount, err := ParseAmount(rawValue)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{RowID: rowID, Amount: amount}
	if amount.Valid {
		d.Remark = remark
	}
	return d, nil
}

// Apply copies the decision onto the row's audit fields
func (d Decision) Apply(row *Row) {
	row.AuditAmount = d.Amount
	row.AuditRemark = d.Remark
}

// Resolve returns the amount a row would be committed with: an explicit
// decision first, then the row's stored or seeded audit amount.
func Resolve(row Row, decisions map[string]Decision) decimal.NullDecimal {
	if d, ok := decisions[row.ID]; ok {
		return d.Amount
	}
	return row.AuditAmount
}

// ValidateForSubmit checks every selected row before a batch audit commit.
// Unselected rows are ignored even when they need audit.
func ValidateForSubmit(rows []Row, selected []string, decisions map[string]Decision) error {
	byID := make(map[string]Row, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	if len(selected) == 0 {
		return shared.ValidationError{Field: "selection", Message: "no rows selected"}
	}

	var incomplete []string
	seen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		if _, dup := seen[id]; dup {
			return shared.ValidationError{Field: "selection", Message: "row selected twice: " + id}
		}
		seen[id] = struct{}{}

		row, ok := byID[id]
		if !ok {
			return shared.NotFoundError{Resource: "reconciliation row", ID: id}
		}
		if !row.HasFinanceRecord {
			return shared.ValidationError{Field: "selection", Message: "row has no finance record and is not auditable: " + id}
		}
		if row.NeedsAudit && !Resolve(row, decisions).Valid {
			incomplete = append(incomplete, id)
		}
	}

	if len(incomplete) > 0 {
		return shared.IncompleteDecisionError{RowIDs: incomplete}
	}
	return nil
}
