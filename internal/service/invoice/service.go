package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/invoicedesk/internal/cache"
	"github.com/Additional-Code/invoicedesk/internal/config"
	"github.com/Additional-Code/invoicedesk/internal/dto"
	"github.com/Additional-Code/invoicedesk/internal/entity"
	"github.com/Additional-Code/invoicedesk/internal/filter"
	"github.com/Additional-Code/invoicedesk/internal/messaging"
	repo "github.com/Additional-Code/invoicedesk/internal/repository/invoice"
	"github.com/Additional-Code/invoicedesk/internal/storage"
	"github.com/Additional-Code/invoicedesk/internal/validation"
	"github.com/Additional-Code/invoicedesk/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/invoicedesk/service/invoice")

// Repository is the persistence collaborator the service needs.
type Repository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	Update(ctx context.Context, inv *entity.Invoice) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f filter.InvoiceFilter) ([]entity.Invoice, int, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
}

// Service encapsulates business logic around invoices.
type Service struct {
	repo      Repository
	validator *validation.Validator
	cache     cache.Store
	cacheTTL  time.Duration
	files     storage.Store
	publisher messaging.Client
	logger    *zap.Logger
	now       func() time.Time

	mutations          metric.Int64Counter
	validationFailures metric.Int64Counter
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository Repository
	Cache      cache.Store
	Storage    storage.Store
	Publisher  messaging.Client
	Config     config.Config
	Logger     *zap.Logger
	Meter      metric.Meter `optional:"true"`
}

// NewService wires a new Service instance.
func NewService(p Params) (*Service, error) {
	meter := p.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("invoices")
	}
	mutations, err := meter.Int64Counter("invoices.mutations",
		metric.WithDescription("Successful invoice writes by operation."))
	if err != nil {
		return nil, fmt.Errorf("create mutations counter: %w", err)
	}
	failures, err := meter.Int64Counter("invoices.validation_failures",
		metric.WithDescription("Invoice payloads rejected by validation, by mode."))
	if err != nil {
		return nil, fmt.Errorf("create validation counter: %w", err)
	}

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := p.Cache
	if store == nil {
		store = cache.Noop()
	}

	return &Service{
		repo:               p.Repository,
		validator:          validation.New(p.Repository),
		cache:              store,
		cacheTTL:           p.Config.Cache.DefaultTTL,
		files:              p.Storage,
		publisher:          p.Publisher,
		logger:             logger,
		now:                time.Now,
		mutations:          mutations,
		validationFailures: failures,
	}, nil
}

// WithClock replaces the time source. Tests pin "today" with it.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today is the current UTC calendar date used for date rules and computed fields.
func (s *Service) Today() time.Time {
	return entity.TruncateDate(s.now().UTC())
}

// Get retrieves an invoice by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id string) (*entity.Invoice, error) {
	ctx, span := serviceTracer.Start(ctx, "InvoiceService.Get", trace.WithAttributes(attribute.String("invoice.id", id)))
	defer span.End()

	var cached entity.Invoice
	err := cache.GetJSON(ctx, s.cache, cacheKey(id), &cached)
	if err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("invoices cache read failed", zap.String("id", id), zap.Error(err))
	}

	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.repositoryError(span, err, "failed to load invoice")
	}

	s.storeInCache(ctx, inv)
	return inv, nil
}

// List returns invoices matching f, newest first, with the total match count.
func (s *Service) List(ctx context.Context, f filter.InvoiceFilter) ([]entity.Invoice, int, error) {
	ctx, span := serviceTracer.Start(ctx, "InvoiceService.List")
	defer span.End()

	invoices, total, err := s.repo.List(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, 0, errorbank.Internal("failed to list invoices", errorbank.WithCause(err))
	}
	return invoices, total, nil
}

// Create validates payload, stores its attachment and persists a new invoice.
func (s *Service) Create(ctx context.Context, payload dto.InvoicePayload) (*entity.Invoice, error) {
	ctx, span := serviceTracer.Start(ctx, "InvoiceService.Create")
	defer span.End()

	now := s.now().UTC()
	changes, err := s.validate(ctx, validation.ModeCreate, payload, nil)
	if err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	inv := &entity.Invoice{
		ID:        ulid.Make().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	changes.Apply(inv)
	span.SetAttributes(attribute.String("invoice.id", inv.ID), attribute.String("invoice.number", inv.InvoiceNumber))

	if changes.File != nil {
		if err := s.attach(ctx, inv, changes.File); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "storage error")
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		s.discardObject(ctx, inv.FileKey)
		return nil, s.repositoryError(span, err, "failed to create invoice")
	}

	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "create")))
	s.storeInCache(ctx, inv)
	s.publish(ctx, EventCreated, inv)
	return inv, nil
}

// Update applies the supplied fields of payload to the invoice with id.
// Absent fields keep their stored values and invoice_number never changes.
func (s *Service) Update(ctx context.Context, id string, payload dto.InvoicePayload) (*entity.Invoice, error) {
	ctx, span := serviceTracer.Start(ctx, "InvoiceService.Update", trace.WithAttributes(attribute.String("invoice.id", id)))
	defer span.End()

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.repositoryError(span, err, "failed to load invoice")
	}

	changes, err := s.validate(ctx, validation.ModeUpdate, payload, existing)
	if err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	updated := *existing
	changes.Apply(&updated)
	updated.UpdatedAt = s.now().UTC()

	previousKey := existing.FileKey
	if changes.File != nil {
		if err := s.attach(ctx, &updated, changes.File); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "storage error")
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		if updated.FileKey != previousKey {
			s.discardObject(ctx, updated.FileKey)
		}
		s.invalidate(ctx, id)
		return nil, s.repositoryError(span, err, "failed to update invoice")
	}

	if updated.FileKey != previousKey {
		s.discardObject(ctx, previousKey)
	}

	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "update")))
	s.storeInCache(ctx, &updated)
	s.publish(ctx, EventUpdated, &updated)
	return &updated, nil
}

// Delete removes the invoice with id along with its attachment.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := serviceTracer.Start(ctx, "InvoiceService.Delete", trace.WithAttributes(attribute.String("invoice.id", id)))
	defer span.End()

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.repositoryError(span, err, "failed to load invoice")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.repositoryError(span, err, "failed to delete invoice")
	}

	s.invalidate(ctx, id)
	s.discardObject(ctx, existing.FileKey)
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "delete")))
	s.publish(ctx, EventDeleted, existing)
	return nil
}

// FileURL resolves the locator of the invoice's attachment, or "" when none is attached.
func (s *Service) FileURL(ctx context.Context, inv *entity.Invoice) (string, error) {
	if !inv.HasFile() {
		return "", nil
	}
	url, err := s.files.URL(ctx, inv.FileKey)
	if err != nil {
		return "", errorbank.Internal("failed to resolve invoice file", errorbank.WithCause(err))
	}
	return url, nil
}

func (s *Service) validate(ctx context.Context, mode validation.Mode, payload dto.InvoicePayload, existing *entity.Invoice) (validation.Changes, error) {
	changes, err := s.validator.Validate(ctx, mode, payload, existing, s.Today())
	if err == nil {
		return changes, nil
	}

	var fieldErrs validation.FieldErrors
	if errors.As(err, &fieldErrs) {
		s.validationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode.String())))
		return validation.Changes{}, fieldErrs.AppError()
	}
	return validation.Changes{}, errorbank.Internal("failed to validate invoice", errorbank.WithCause(err))
}

// attach uploads file and points inv at the new object.
func (s *Service) attach(ctx context.Context, inv *entity.Invoice, file *dto.FileUpload) error {
	body, err := file.Open()
	if err != nil {
		return errorbank.Internal("failed to read uploaded file", errorbank.WithCause(err))
	}
	defer body.Close()

	reader, contentType, err := storage.Sniff(body, file.Name)
	if err != nil {
		return errorbank.Internal("failed to read uploaded file", errorbank.WithCause(err))
	}

	key := storage.NewKey(file.Name)
	if err := s.files.Put(ctx, key, reader, file.Size, contentType); err != nil {
		return errorbank.Internal("failed to store invoice file", errorbank.WithCause(err))
	}

	inv.FileKey = key
	inv.FileName = file.Name
	inv.FileSize = file.Size
	return nil
}

func (s *Service) discardObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		s.logger.Warn("invoice file cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) repositoryError(span trace.Span, err error, message string) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		span.SetStatus(codes.Error, "not found")
		return errorbank.NotFound("invoice not found")
	case errors.Is(err, repo.ErrDuplicateNumber):
		span.SetStatus(codes.Error, "duplicate invoice number")
		return validation.Duplicate().AppError()
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal(message, errorbank.WithCause(err))
	}
}

func (s *Service) publish(ctx context.Context, eventType string, inv *entity.Invoice) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(newEvent(eventType, inv, s.now().UTC()))
	if err != nil {
		s.logger.Error("marshal invoice event", zap.String("type", eventType), zap.Error(err))
		return
	}
	header := messaging.Header{Key: EventHeader, Value: eventType}
	if err := s.publisher.Publish(ctx, []byte(inv.ID), payload, header); err != nil {
		s.logger.Error("publish invoice event",
			zap.String("type", eventType),
			zap.String("id", inv.ID),
			zap.String("topic", s.publisher.Topic()),
			zap.Error(err),
		)
	}
}

func cacheKey(id string) string {
	return "invoices:" + id
}

func (s *Service) storeInCache(ctx context.Context, inv *entity.Invoice) {
	if err := cache.SetJSON(ctx, s.cache, cacheKey(inv.ID), inv, s.cacheTTL); err != nil {
		s.logger.Warn("invoices cache write failed", zap.String("id", inv.ID), zap.Error(err))
	}
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.logger.Warn("invoices cache delete failed", zap.String("id", id), zap.Error(err))
	}
}
