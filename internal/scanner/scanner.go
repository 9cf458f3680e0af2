package scanner

import (
	"context"
	"fmt"

	"PressWatch/internal/domain"
)

// Scanner captures a single extraction strategy, selected by the source's rule type.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, source domain.Source) ([]domain.Candidate, error)
}

// Registry keeps a mapping from rule types to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns the scanner for a rule type. An empty type means the simple list strategy.
func (r *Registry) Resolve(ruleType string) (Scanner, error) {
	if ruleType == "" {
		ruleType = domain.RuleTypeSimpleList
	}
	if scanner, ok := r.scanners[ruleType]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("rule type %q: %w", ruleType, domain.ErrUnsupportedRule)
}
