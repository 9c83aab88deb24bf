package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/platform/persistence"
)

// PolicyRepository reads withdrawal policies. Every call hits the table so
// admin edits apply to the next request.
type PolicyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPolicyRepository creates a new PostgreSQL withdrawal policy repository
func NewPolicyRepository(logger *slog.Logger, db *persistence.PostgresDB) withdrawal.PolicyRepository {
	return &PolicyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Policy returns the module's policy; a module without a row allows nothing
func (r *PolicyRepository) Policy(ctx context.Context, moduleType shared.ModuleType) (withdrawal.Policy, error) {
	query := `SELECT allowed_statuses FROM withdrawal_policies WHERE module_type = $1`

	policy := withdrawal.Policy{ModuleType: moduleType}
	err := r.querier.QueryRow(ctx, query, moduleType).Scan(&policy.AllowedStatuses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return policy, nil
		}
		r.logger.Error("Failed to read withdrawal policy", "module_type", string(moduleType), "error", err)
		return withdrawal.Policy{}, fmt.Errorf("failed to read withdrawal policy: %w", err)
	}

	return policy, nil
}

// List returns every configured policy
func (r *PolicyRepository) List(ctx context.Context) ([]withdrawal.Policy, error) {
	rows, err := r.querier.Query(ctx, `SELECT module_type, allowed_statuses FROM withdrawal_policies ORDER BY module_type`)
	if err != nil {
		r.logger.Error("Failed to list withdrawal policies", "error", err)
		return nil, fmt.Errorf("failed to list withdrawal policies: %w", err)
	}
	defer rows.Close()

	var policies []withdrawal.Policy
	for rows.Next() {
		var p withdrawal.Policy
		if err := rows.Scan(&p.ModuleType, &p.AllowedStatuses); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal policy: %w", err)
		}
		policies = append(policies, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over withdrawal policies: %w", err)
	}

	return policies, nil
}
