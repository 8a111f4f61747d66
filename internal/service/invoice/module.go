package invoice

import (
	"go.uber.org/fx"

	repo "github.com/Additional-Code/invoicedesk/internal/repository/invoice"
)

// Module provides the invoice service to Fx.
var Module = fx.Provide(
	provideRepository,
	NewService,
)

func provideRepository(r *repo.Repository) Repository {
	return r
}
