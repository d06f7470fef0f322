package typenames

import (
	"context"
	"fmt"
	"strings"

	"github.com/stardex-io/stardex/internal/domain"
)

// Limits holds per-query size settings.
type Limits struct {
	Default int
	Max     int
}

// Service answers type-name queries against the catalog.
type Service struct {
	store  Store
	limits Limits
}

// New creates a type-name service.
func New(store Store, limits Limits) *Service {
	return &Service{store: store, limits: limits}
}

// Search returns type names containing query, case-insensitive. A
// non-positive limit takes the configured default; larger limits are
// clamped to the configured maximum.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]domain.TypeName, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", domain.ErrInvalidQuery)
	}
	if limit <= 0 {
		limit = s.limits.Default
	}
	if limit > s.limits.Max {
		limit = s.limits.Max
	}

	names, err := s.store.SearchTypeNames(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search type names: %w", err)
	}
	return names, nil
}

// Get resolves a single type id.
func (s *Service) Get(ctx context.Context, typeID uint32) (domain.TypeName, error) {
	tn, err := s.store.TypeName(ctx, typeID)
	if err != nil {
		return domain.TypeName{}, fmt.Errorf("get type name %d: %w", typeID, err)
	}
	return tn, nil
}
