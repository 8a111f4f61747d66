package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/uptrace/bun"

	"github.com/Additional-Code/invoicedesk/internal/entity"
	"github.com/Additional-Code/invoicedesk/internal/validation"
)

// Query parameter names understood by Parse.
const (
	ParamStatus         = "status"
	ParamClientName     = "client_name"
	ParamInvoiceNumber  = "invoice_number"
	ParamIssueDateFrom  = "issue_date_from"
	ParamIssueDateTo    = "issue_date_to"
	ParamDueDateFrom    = "due_date_from"
	ParamDueDateTo      = "due_date_to"
	ParamCreatedAtFrom  = "created_at_from"
	ParamCreatedAtTo    = "created_at_to"
	ParamIssueDateRange = "issue_date_range"
	ParamLimit          = "limit"
	ParamOffset         = "offset"
)

// MaxLimit bounds a single page.
const MaxLimit = 500

// likeEscape is the escape character used in LIKE patterns; it works unchanged on
// postgres, mysql and sqlite.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	entity.DateLayout,
}

// DateRange is an inclusive calendar-date interval.
type DateRange struct {
	From time.Time
	To   time.Time
}

// InvoiceFilter is the parsed form of the list query. Zero fields impose no constraint.
type InvoiceFilter struct {
	Status         *entity.InvoiceStatus
	ClientName     string
	InvoiceNumber  string
	IssueDateFrom  *time.Time
	IssueDateTo    *time.Time
	DueDateFrom    *time.Time
	DueDateTo      *time.Time
	CreatedAtFrom  *time.Time
	CreatedAtTo    *time.Time
	IssueDateRange *DateRange
	Limit          int
	Offset         int
}

// Parse reads an InvoiceFilter from query parameters. Malformed parameters are
// reported as validation.FieldErrors, except issue_date_range which is dropped
// silently when it cannot be read.
func Parse(values url.Values) (InvoiceFilter, error) {
	var f InvoiceFilter
	errs := validation.FieldErrors{}

	if raw := get(values, ParamStatus); raw != "" {
		status := entity.InvoiceStatus(raw)
		if lo.Contains(entity.InvoiceStatuses, status) {
			f.Status = &status
		} else {
			errs.Add(ParamStatus, validation.CodeInvalidEnum,
				fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", raw))
		}
	}

	f.ClientName = get(values, ParamClientName)
	f.InvoiceNumber = get(values, ParamInvoiceNumber)

	f.IssueDateFrom = parseDateParam(values, ParamIssueDateFrom, errs)
	f.IssueDateTo = parseDateParam(values, ParamIssueDateTo, errs)
	f.DueDateFrom = parseDateParam(values, ParamDueDateFrom, errs)
	f.DueDateTo = parseDateParam(values, ParamDueDateTo, errs)
	f.CreatedAtFrom = parseTimestampParam(values, ParamCreatedAtFrom, errs)
	f.CreatedAtTo = parseTimestampParam(values, ParamCreatedAtTo, errs)
	f.IssueDateRange = ParseDateRange(get(values, ParamIssueDateRange))

	f.Limit = parseIntParam(values, ParamLimit, 1, MaxLimit, errs)
	f.Offset = parseIntParam(values, ParamOffset, 0, -1, errs)
	if get(values, ParamOffset) != "" && get(values, ParamLimit) == "" {
		errs.Add(ParamOffset, validation.CodeInvalid, "Offset requires a limit.")
	}

	if len(errs) > 0 {
		return InvoiceFilter{}, errs
	}
	return f, nil
}

// ParseDateRange reads "start,end". Anything else yields nil.
func ParseDateRange(raw string) *DateRange {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil
	}
	from, err := validation.ParseDate(parts[0])
	if err != nil {
		return nil
	}
	to, err := validation.ParseDate(parts[1])
	if err != nil {
		return nil
	}
	return &DateRange{From: from, To: to}
}

// Apply adds the filter's predicates to q, AND-combined.
func (f InvoiceFilter) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if f.Status != nil {
		q = q.Where("status = ?", f.Status.String())
	}
	if f.ClientName != "" {
		q = q.Where("LOWER(client_name) LIKE ? ESCAPE '"+likeEscape+"'", containsPattern(f.ClientName))
	}
	if f.InvoiceNumber != "" {
		q = q.Where("LOWER(invoice_number) LIKE ? ESCAPE '"+likeEscape+"'", containsPattern(f.InvoiceNumber))
	}
	q = dateBound(q, "issue_date >= ?", f.IssueDateFrom)
	q = dateBound(q, "issue_date <= ?", f.IssueDateTo)
	q = dateBound(q, "due_date >= ?", f.DueDateFrom)
	q = dateBound(q, "due_date <= ?", f.DueDateTo)
	if f.IssueDateRange != nil {
		q = q.Where("issue_date BETWEEN ? AND ?",
			f.IssueDateRange.From.Format(entity.DateLayout),
			f.IssueDateRange.To.Format(entity.DateLayout))
	}
	if f.CreatedAtFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedAtFrom)
	}
	if f.CreatedAtTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedAtTo)
	}
	return q
}

// Page applies limit/offset when a limit was requested. Parse rejects an offset without a limit.
func (f InvoiceFilter) Page(q *bun.SelectQuery) *bun.SelectQuery {
	if f.Limit <= 0 {
		return q
	}
	return q.Limit(f.Limit).Offset(f.Offset)
}

// Match evaluates the same predicates in memory.
func (f InvoiceFilter) Match(inv *entity.Invoice) bool {
	if f.Status != nil && inv.Status != *f.Status {
		return false
	}
	if f.ClientName != "" && !containsFold(inv.ClientName, f.ClientName) {
		return false
	}
	if f.InvoiceNumber != "" && !containsFold(inv.InvoiceNumber, f.InvoiceNumber) {
		return false
	}
	issue := entity.TruncateDate(inv.IssueDate)
	due := entity.TruncateDate(inv.DueDate)
	if !withinDates(issue, f.IssueDateFrom, f.IssueDateTo) || !withinDates(due, f.DueDateFrom, f.DueDateTo) {
		return false
	}
	if f.IssueDateRange != nil && !withinDates(issue, &f.IssueDateRange.From, &f.IssueDateRange.To) {
		return false
	}
	if f.CreatedAtFrom != nil && inv.CreatedAt.Before(*f.CreatedAtFrom) {
		return false
	}
	if f.CreatedAtTo != nil && inv.CreatedAt.After(*f.CreatedAtTo) {
		return false
	}
	return true
}

func withinDates(d time.Time, from, to *time.Time) bool {
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func containsPattern(term string) string {
	return "%" + likeReplacer.Replace(strings.ToLower(term)) + "%"
}

func dateBound(q *bun.SelectQuery, cond string, d *time.Time) *bun.SelectQuery {
	if d == nil {
		return q
	}
	return q.Where(cond, d.Format(entity.DateLayout))
}

func get(values url.Values, key string) string {
	return strings.TrimSpace(values.Get(key))
}

func parseDateParam(values url.Values, key string, errs validation.FieldErrors) *time.Time {
	raw := get(values, key)
	if raw == "" {
		return nil
	}
	d, err := validation.ParseDate(raw)
	if err != nil {
		errs.Add(key, validation.CodeInvalid, "Enter a valid date.")
		return nil
	}
	return &d
}

func parseTimestampParam(values url.Values, key string, errs validation.FieldErrors) *time.Time {
	raw := get(values, key)
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	errs.Add(key, validation.CodeInvalid, "Enter a valid date/time.")
	return nil
}

// parseIntParam reads a bounded integer; upper < 0 means unbounded.
func parseIntParam(values url.Values, key string, lower, upper int, errs validation.FieldErrors) int {
	raw := get(values, key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs.Add(key, validation.CodeInvalid, "A valid integer is required.")
		return 0
	}
	switch {
	case upper < 0 && n < lower:
		errs.Add(key, validation.CodeOutOfRange, fmt.Sprintf("Ensure this value is greater than or equal to %d.", lower))
		return 0
	case upper >= 0 && (n < lower || n > upper):
		errs.Add(key, validation.CodeOutOfRange, fmt.Sprintf("Ensure this value is between %d and %d.", lower, upper))
		return 0
	}
	return n
}
