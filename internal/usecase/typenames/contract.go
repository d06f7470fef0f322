package typenames

import (
	"context"

	"github.com/stardex-io/stardex/internal/domain"
)

// Store is the catalog surface the service reads type names from.
type Store interface {
	SearchTypeNames(ctx context.Context, query string, limit int) ([]domain.TypeName, error)
	TypeName(ctx context.Context, typeID uint32) (domain.TypeName, error)
}
