package invoice

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/invoicedesk/internal/config"
	"github.com/Additional-Code/invoicedesk/internal/dto"
	"github.com/Additional-Code/invoicedesk/internal/entity"
	"github.com/Additional-Code/invoicedesk/internal/filter"
	"github.com/Additional-Code/invoicedesk/internal/presentation/http/response"
	service "github.com/Additional-Code/invoicedesk/internal/service/invoice"
	"github.com/Additional-Code/invoicedesk/internal/validation"
	"github.com/Additional-Code/invoicedesk/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/invoicedesk/transport/http/invoice")

// formFields are the scalar payload fields accepted in form bodies.
var formFields = []string{
	validation.FieldInvoiceNumber,
	validation.FieldClientName,
	validation.FieldAmount,
	validation.FieldStatus,
	validation.FieldIssueDate,
	validation.FieldDueDate,
}

// Handler exposes invoice endpoints over HTTP.
type Handler struct {
	svc           *service.Service
	publicBaseURL string
}

// NewHandler constructs an invoice Handler.
func NewHandler(svc *service.Service, cfg config.Config) *Handler {
	return &Handler{svc: svc, publicBaseURL: cfg.HTTP.PublicBaseURL}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/invoices")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.getByID)
	g.PUT("/:id", h.update)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	f, err := filter.Parse(c.QueryParams())
	if err != nil {
		return b.WithError(filterError(err)).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "invoices.list")
	defer span.End()

	invoices, total, err := h.svc.List(ctx, f)
	if err != nil {
		return b.WithError(err).Build()
	}
	span.SetAttributes(attribute.Int("invoices.count", total))

	items := lo.Map(invoices, func(inv entity.Invoice, _ int) dto.InvoiceListItem {
		return dto.NewInvoiceListItem(&inv)
	})

	b.WithData(items).WithMeta("count", total)
	if f.Limit > 0 {
		b.WithMeta("limit", f.Limit).WithMeta("offset", f.Offset)
	}
	return b.Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "invoices.getByID", trace.WithAttributes(attribute.String("invoice.id", id)))
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	inv, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return h.renderDetail(c, b, inv)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	payload, err := decodePayload(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "invoices.create")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	inv, err := h.svc.Create(ctx, payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	span.SetAttributes(attribute.String("invoice.id", inv.ID))

	return h.renderDetail(c, b.WithStatus(http.StatusCreated), inv)
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	payload, err := decodePayload(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "invoices.update", trace.WithAttributes(attribute.String("invoice.id", id)))
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	inv, err := h.svc.Update(ctx, id, payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return h.renderDetail(c, b, inv)
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "invoices.delete", trace.WithAttributes(attribute.String("invoice.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusNoContent).Build()
}

func (h *Handler) renderDetail(c echo.Context, b *response.Builder, inv *entity.Invoice) error {
	fileURL, err := h.svc.FileURL(c.Request().Context(), inv)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewInvoiceDetail(inv, h.svc.Today(), h.absoluteURL(c, fileURL))).Build()
}

// absoluteURL roots server-relative locators at the public base URL, or at the
// request's own scheme and host when none is configured.
func (h *Handler) absoluteURL(c echo.Context, locator string) string {
	if locator == "" || !strings.HasPrefix(locator, "/") {
		return locator
	}
	base := h.publicBaseURL
	if base == "" {
		base = c.Scheme() + "://" + c.Request().Host
	}
	return base + locator
}

// decodePayload reads a JSON body, or a url-encoded or multipart form carrying an optional "file".
func decodePayload(c echo.Context) (dto.InvoicePayload, error) {
	var payload dto.InvoicePayload

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) && !strings.HasPrefix(contentType, echo.MIMEApplicationForm) {
		if err := c.Bind(&payload); err != nil {
			return payload, errorbank.BadRequest("invalid payload", errorbank.WithCause(err))
		}
		return payload, nil
	}

	values, err := c.FormParams()
	if err != nil {
		return payload, errorbank.BadRequest("invalid form payload", errorbank.WithCause(err))
	}

	fields := make(map[string]*string, len(formFields))
	for _, name := range formFields {
		if vs, ok := values[name]; ok && len(vs) > 0 {
			v := vs[0]
			fields[name] = &v
		}
	}
	payload.InvoiceNumber = fields[validation.FieldInvoiceNumber]
	payload.ClientName = fields[validation.FieldClientName]
	payload.Status = fields[validation.FieldStatus]
	payload.IssueDate = fields[validation.FieldIssueDate]
	payload.DueDate = fields[validation.FieldDueDate]
	if raw := fields[validation.FieldAmount]; raw != nil {
		n := dto.RawNumber(*raw)
		payload.Amount = &n
	}

	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		return payload, nil
	}
	header, err := c.FormFile(validation.FieldFile)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return payload, nil
	case err != nil:
		return payload, errorbank.BadRequest("invalid file upload", errorbank.WithCause(err))
	}
	payload.File = &dto.FileUpload{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
	return payload, nil
}

func filterError(err error) error {
	var fields validation.FieldErrors
	if errors.As(err, &fields) {
		return errorbank.BadRequest("invalid invoice filter",
			errorbank.WithCause(fields),
			errorbank.WithDetail("fields", fields),
		)
	}
	return errorbank.BadRequest("invalid invoice filter", errorbank.WithCause(err))
}
