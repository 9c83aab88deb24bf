package withdrawal

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/funding-audit-ledger/internal/domain/shared"
)

// Policy lists the record statuses from which a module allows withdrawal requests
type Policy struct {
	ModuleType      shared.ModuleType `json:"module_type"`
	AllowedStatuses []string          `json:"allowed_statuses"`
}

// Allows is a case-insensitive membership test
func (p Policy) Allows(status shared.RecordStatus) bool {
	for _, allowed := range p.AllowedStatuses {
		if strings.EqualFold(strings.TrimSpace(allowed), string(status)) {
			return true
		}
	}
	return false
}

// PolicySource supplies the current policy for a module. Implementations must
// not cache: the policy is edited outside this service.
type PolicySource interface {
	Policy(ctx context.Context, moduleType shared.ModuleType) (Policy, error)
}

// PolicySet is a fixed in-memory policy table
type PolicySet map[shared.ModuleType]Policy

// Policy returns the module's policy; unknown modules allow nothing
func (s PolicySet) Policy(_ context.Context, moduleType shared.ModuleType) (Policy, error) {
	if p, ok := s[moduleType]; ok {
		return p, nil
	}
	return Policy{ModuleType: moduleType}, nil
}

// ParsePolicies reads "module:status,status;module:status"
func ParsePolicies(raw string) (PolicySet, error) {
	set := PolicySet{}
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, statuses, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("withdrawal policy %q: missing ':'", entry)
		}
		moduleType, valid := shared.ParseModuleType(name)
		if !valid {
			return nil, fmt.Errorf("withdrawal policy %q: unknown module type", entry)
		}

		policy := Policy{ModuleType: moduleType}
		for _, status := range strings.Split(statuses, ",") {
			if status = strings.TrimSpace(status); status != "" {
				policy.AllowedStatuses = append(policy.AllowedStatuses, status)
			}
		}
		set[moduleType] = policy
	}
	return set, nil
}

// List returns the configured policies ordered by module type
func (s PolicySet) List(_ context.Context) ([]Policy, error) {
	policies := make([]Policy, 0, len(s))
	for _, p := range s {
		policies = append(policies, p)
	}
	sort.Slice(policies, func(i, j int) bool {
		return policies[i].ModuleType < policies[j].ModuleType
	})
	return policies, nil
}
