// Package reconciliation joins the user and finance channels of actual
// funding into comparison rows and validates audit decisions against them.
package reconciliation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Row is a derived comparison of an ActualUser and an ActualFinance record
// sharing a fund need and period. It is never persisted.
type Row struct {
	ID               string              `json:"id"`
	Key              record.Key          `json:"key"`
	UserRecordID     *uuid.UUID          `json:"user_record_id,omitempty"`
	FinanceRecordID  *uuid.UUID          `json:"finance_record_id,omitempty"`
	UserStatus       shared.RecordStatus `json:"user_status,omitempty"`
	FinanceStatus    shared.RecordStatus `json:"finance_status,omitempty"`
	UserAmount       decimal.NullDecimal `json:"user_amount"`
	FinanceAmount    decimal.NullDecimal `json:"finance_amount"`
	HasDifference    bool                `json:"has_difference"`
	HasFinanceRecord bool                `json:"has_finance_record"`
	NeedsAudit       bool                `json:"needs_audit"`
	AuditAmount      decimal.NullDecimal `json:"audit_amount"`
	CommittedAmount  decimal.NullDecimal `json:"committed_amount"`
	AuditStatus      shared.RecordStatus `json:"audit_status,omitempty"`
	AuditRemark      *string             `json:"audit_remark,omitempty"`
}

// RowID renders the stable identifier of the row for a period key
func RowID(key record.Key) string {
	return fmt.Sprintf("%s:%04d:%02d", key.FundNeedID, key.Year, key.Month)
}

// ParseRowID is the inverse of RowID
func ParseRowID(id string) (record.Key, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 {
		return record.Key{}, shared.ValidationError{Field: "row_id", Message: "malformed row id " + id}
	}
	fundNeedID, err := uuid.Parse(parts[0])
	if err != nil {
		return record.Key{}, shared.ValidationError{Field: "row_id", Message: "malformed fund need in row id " + id}
	}
	year, errYear := strconv.Atoi(parts[1])
	month, errMonth := strconv.Atoi(parts[2])
	if errYear != nil || errMonth != nil || month < 1 || month > 12 {
		return record.Key{}, shared.ValidationError{Field: "row_id", Message: "malformed period in row id " + id}
	}
	return record.Key{FundNeedID: fundNeedID, Year: year, Month: month}, nil
}

// Build joins one user record and one finance record for the same key.
// Either side may be nil.
func Build(key record.Key, user, finance *record.FundingRecord) Row {
	row := Row{ID: RowID(key), Key: key}

	if user != nil {
		id := user.ID
		row.UserRecordID = &id
		row.UserStatus = user.Status
		row.UserAmount = user.Amount
	}

	if finance != nil {
		id := finance.ID
		row.FinanceRecordID = &id
		row.HasFinanceRecord = true
		row.FinanceStatus = finance.Status
		row.FinanceAmount = finance.Amount
		row.CommittedAmount = finance.AuditAmount
		row.AuditRemark = finance.AuditRemark
		if finance.Status == shared.RecordStatusApproved || finance.Status == shared.RecordStatusRejected {
			row.AuditStatus = finance.Status
		}
	}

	row.HasDifference = row.UserAmount.Valid && row.FinanceAmount.Valid &&
		!row.UserAmount.Decimal.Equal(row.FinanceAmount.Decimal)
	row.NeedsAudit = row.HasFinanceRecord && row.AuditStatus != shared.RecordStatusApproved

	// A row with no open audit always reports the finance figure; the stored
	// decision stays visible as CommittedAmount. Open rows show the stored
	// draft decision, or the finance figure when the channels agree.
	switch {
	case !row.NeedsAudit:
		row.AuditAmount = row.FinanceAmount
	case row.CommittedAmount.Valid:
		row.AuditAmount = row.CommittedAmount
	case !row.HasDifference:
		row.AuditAmount = row.FinanceAmount
	}

	return row
}

// BuildView joins user and finance records on fund need and period. Records
// of other kinds are ignored. Rows are ordered by fund need, year and month.
func BuildView(users, finances []*record.FundingRecord) []Row {
	type pair struct {
		user, finance *record.FundingRecord
	}
	pairs := make(map[record.Key]*pair)
	get := func(key record.Key) *pair {
		p, ok := pairs[key]
		if !ok {
			p = &pair{}
			pairs[key] = p
		}
		return p
	}

	for _, rec := range users {
		if rec != nil && rec.Kind == shared.RecordKindActualUser {
			get(rec.Period()).user = rec
		}
	}
	for _, rec := range finances {
		if rec != nil && rec.Kind == shared.RecordKindActualFinance {
			get(rec.Period()).finance = rec
		}
	}

	rows := make([]Row, 0, len(pairs))
	for key, p := range pairs {
		rows = append(rows, Build(key, p.user, p.finance))
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].Key, rows[j].Key
		if a.FundNeedID != b.FundNeedID {
			return a.FundNeedID.String() < b.FundNeedID.String()
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	return rows
}
