package invoice

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/invoicedesk/internal/database"
	"github.com/Additional-Code/invoicedesk/internal/entity"
	"github.com/Additional-Code/invoicedesk/internal/filter"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/invoicedesk/repository/invoice")

var (
	// ErrNotFound is returned when an invoice is missing.
	ErrNotFound = errors.New("invoice not found")
	// ErrDuplicateNumber is returned when the unique index on invoice_number rejects a write.
	ErrDuplicateNumber = errors.New("invoice number already exists")
)

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
	sqliteUniqueFailed  = "UNIQUE constraint failed"
	orderNewestFirst    = "created_at DESC"
	orderStableTiebreak = "id DESC"
)

var immutableColumns = []string{"id", "invoice_number", "created_at"}

// Repository encapsulates read/write access for invoices.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new invoice using the write connection.
func (r *Repository) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv == nil {
		return errors.New("nil invoice")
	}
	ctx, span := repoTracer.Start(ctx, "InvoiceRepository.Create", trace.WithAttributes(attribute.String("invoice.number", inv.InvoiceNumber)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(inv).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			span.SetStatus(codes.Error, "duplicate invoice number")
			return ErrDuplicateNumber
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an invoice by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	ctx, span := repoTracer.Start(ctx, "InvoiceRepository.GetByID", trace.WithAttributes(attribute.String("invoice.id", id)))
	defer span.End()

	inv := new(entity.Invoice)
	err := r.reader.NewSelect().Model(inv).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return inv, nil
}

// Update writes every mutable column of inv. id, invoice_number and created_at are never rewritten.
func (r *Repository) Update(ctx context.Context, inv *entity.Invoice) error {
	if inv == nil {
		return errors.New("nil invoice")
	}
	ctx, span := repoTracer.Start(ctx, "InvoiceRepository.Update", trace.WithAttributes(attribute.String("invoice.id", inv.ID)))
	defer span.End()

	res, err := updateQuery(r.writer, inv).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			span.SetStatus(codes.Error, "duplicate invoice number")
			return ErrDuplicateNumber
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return requireAffected(res, span)
}

// Delete removes an invoice by primary key.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := repoTracer.Start(ctx, "InvoiceRepository.Delete", trace.WithAttributes(attribute.String("invoice.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().
		Model((*entity.Invoice)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	return requireAffected(res, span)
}

// List returns invoices matching f, newest first, with the total match count.
func (r *Repository) List(ctx context.Context, f filter.InvoiceFilter) ([]entity.Invoice, int, error) {
	ctx, span := repoTracer.Start(ctx, "InvoiceRepository.List", trace.WithAttributes(
		attribute.Int("filter.limit", f.Limit),
		attribute.Int("filter.offset", f.Offset),
	))
	defer span.End()

	invoices := make([]entity.Invoice, 0)
	count, err := listQuery(r.reader, f, &invoices).ScanAndCount(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, 0, err
	}
	span.SetAttributes(attribute.Int("result.count", count))
	return invoices, count, nil
}

// InvoiceNumberExists reports whether number is taken, ignoring case.
// It reads from the writer so a just-committed create is visible.
func (r *Repository) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "InvoiceRepository.InvoiceNumberExists", trace.WithAttributes(attribute.String("invoice.number", number)))
	defer span.End()

	exists, err := r.writer.NewSelect().
		Model((*entity.Invoice)(nil)).
		Where("UPPER(invoice_number) = ?", strings.ToUpper(number)).
		Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exists failed")
		return false, err
	}
	return exists, nil
}

// listQuery selects the invoices matching f into dest, newest first, paged last.
func listQuery(db bun.IDB, f filter.InvoiceFilter, dest *[]entity.Invoice) *bun.SelectQuery {
	q := f.Apply(db.NewSelect().Model(dest))
	q = q.OrderExpr(orderNewestFirst).OrderExpr(orderStableTiebreak)
	return f.Page(q)
}

// updateQuery rewrites the mutable columns of inv; identity and creation data stay untouched.
func updateQuery(db bun.IDB, inv *entity.Invoice) *bun.UpdateQuery {
	return db.NewUpdate().
		Model(inv).
		ExcludeColumn(immutableColumns...).
		WherePK()
}

func requireAffected(res sql.Result, span trace.Span) error {
	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return err
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), sqliteUniqueFailed)
}
