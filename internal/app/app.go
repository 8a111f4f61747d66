package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/invoicedesk/internal/cache"
	"github.com/Additional-Code/invoicedesk/internal/config"
	"github.com/Additional-Code/invoicedesk/internal/database"
	"github.com/Additional-Code/invoicedesk/internal/logger"
	"github.com/Additional-Code/invoicedesk/internal/messaging"
	"github.com/Additional-Code/invoicedesk/internal/observability"
	repositoryinvoice "github.com/Additional-Code/invoicedesk/internal/repository/invoice"
	grpcserver "github.com/Additional-Code/invoicedesk/internal/server/grpc"
	httpserver "github.com/Additional-Code/invoicedesk/internal/server/http"
	serviceinvoice "github.com/Additional-Code/invoicedesk/internal/service/invoice"
	"github.com/Additional-Code/invoicedesk/internal/storage"
	transporthttp "github.com/Additional-Code/invoicedesk/internal/transport/http"
)

// Infra provides configuration, logging and database access; enough for
// migrations and seeding.
var Infra = fx.Options(
	config.Module,
	logger.Module,
	database.Module,
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	Infra,
	cache.Module,
	messaging.Module,
	observability.Module,
	storage.Module,
	repositoryinvoice.Module,
	serviceinvoice.Module,
)

// HTTP wires the HTTP and gRPC servers on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
	grpcserver.Module,
)

// Module is the default application wiring.
var Module = HTTP
