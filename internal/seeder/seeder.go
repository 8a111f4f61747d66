package seeder

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/invoicedesk/internal/database"
	"github.com/Additional-Code/invoicedesk/internal/entity"
)

// Module provides the seeder to CLI commands.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
	now    func() time.Time
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger, now: time.Now}
}

// SampleInvoices returns a small spread of invoices across every status, dated relative to now.
func SampleInvoices(now time.Time) []entity.Invoice {
	today := entity.TruncateDate(now.UTC())
	days := func(n int) time.Time { return today.AddDate(0, 0, n) }

	samples := []entity.Invoice{
		{InvoiceNumber: "INV-SEED-001", ClientName: "Acme Corporation", Amount: decimal.RequireFromString("1250.00"), Status: entity.InvoiceStatusDraft, IssueDate: days(-2), DueDate: days(28)},
		{InvoiceNumber: "INV-SEED-002", ClientName: "Globex Industries", Amount: decimal.RequireFromString("980.50"), Status: entity.InvoiceStatusSent, IssueDate: days(-10), DueDate: days(20)},
		{InvoiceNumber: "INV-SEED-003", ClientName: "Initech", Amount: decimal.RequireFromString("15000.00"), Status: entity.InvoiceStatusPaid, IssueDate: days(-45), DueDate: days(-15)},
		{InvoiceNumber: "INV-SEED-004", ClientName: "Umbrella Holdings", Amount: decimal.RequireFromString("432.10"), Status: entity.InvoiceStatusOverdue, IssueDate: days(-60), DueDate: days(-30)},
	}

	stamp := now.UTC()
	for i := range samples {
		samples[i].ID = ulid.Make().String()
		samples[i].CreatedAt = stamp
		samples[i].UpdatedAt = stamp
	}
	return samples
}

// Invoices seeds example invoices, skipping numbers that already exist.
func (s *Seeder) Invoices(ctx context.Context) error {
	samples := SampleInvoices(s.now())

	inserted := 0
	for i := range samples {
		res, err := s.db.NewInsert().Model(&samples[i]).Ignore().Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded invoices", zap.Int("inserted", inserted), zap.Int("candidates", len(samples)))
	}
	return nil
}
