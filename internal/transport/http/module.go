package http

import (
	"go.uber.org/fx"

	invoicetransport "github.com/Additional-Code/invoicedesk/internal/transport/http/invoice"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	invoicetransport.Module,
)
