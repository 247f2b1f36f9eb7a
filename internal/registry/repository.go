package registry

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/quadro/internal/shared"
)

// Repository runs the read queries against the table built by the loader. Implementations
// borrow a pooled connection per call and never write.
type Repository interface {
	// OperatorsByCompany lists nm_socio of rows whose nm_fantasia equals company, in store
	// order, duplicates kept.
	OperatorsByCompany(ctx context.Context, company string, page Page) ([]string, error)
	// CompaniesByOperator lists nm_fantasia of rows whose nm_socio equals operator, in store
	// order, duplicates kept.
	CompaniesByOperator(ctx context.Context, operator string, page Page) ([]string, error)
	// CompaniesSharingOperators lists the distinct companies sharing at least one operator
	// with company, company itself included.
	CompaniesSharingOperators(ctx context.Context, company string, page Page) ([]string, error)
}

func storageError(op string, err error) error {
	return fmt.Errorf("registry: %s: %w: %w", op, shared.ErrStorage, err)
}
