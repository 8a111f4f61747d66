package validation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Additional-Code/invoicedesk/internal/dto"
	"github.com/Additional-Code/invoicedesk/internal/entity"
)

// Mode selects which fields are mandatory and whether the invoice number may be set.
type Mode int

const (
	// ModeCreate requires every field except the attachment.
	ModeCreate Mode = iota + 1
	// ModeUpdate treats every field as optional and the invoice number as read-only.
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Field names as they appear in payloads and error maps.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldClientName    = "client_name"
	FieldAmount        = "amount"
	FieldStatus        = "status"
	FieldIssueDate     = "issue_date"
	FieldDueDate       = "due_date"
	FieldFile          = "file"
)

const (
	MaxInvoiceNumberLength = 20
	MaxClientNameLength    = 100
	MinClientNameLength    = 2
	MaxAmountDecimalPlaces = 2
	MaxFileSize            = 10 * 1024 * 1024
	MaxFileNameLength      = 255

	// maxAmountExponent is the largest base-10 exponent a value within MaxAmount can carry.
	maxAmountExponent = 5
)

// MaxAmount is the largest accepted invoice amount.
var MaxAmount = decimal.RequireFromString("999999.99")

// AllowedFileExtensions are matched case-insensitively against the upload's name suffix.
var AllowedFileExtensions = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx"}

// NumberChecker looks up whether an upper-cased invoice number is already taken.
// The answer is advisory; the storage unique index has the final word.
type NumberChecker interface {
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
}

// Changes holds the normalized values that passed validation. Nil fields are untouched.
type Changes struct {
	InvoiceNumber *string
	ClientName    *string
	Amount        *decimal.Decimal
	Status        *entity.InvoiceStatus
	IssueDate     *time.Time
	DueDate       *time.Time
	File          *dto.FileUpload
}

// Apply copies the scalar changes onto inv. Attachments are handled by the caller.
func (c Changes) Apply(inv *entity.Invoice) {
	if c.InvoiceNumber != nil {
		inv.InvoiceNumber = *c.InvoiceNumber
	}
	if c.ClientName != nil {
		inv.ClientName = *c.ClientName
	}
	if c.Amount != nil {
		inv.Amount = *c.Amount
	}
	if c.Status != nil {
		inv.Status = *c.Status
	}
	if c.IssueDate != nil {
		inv.IssueDate = *c.IssueDate
	}
	if c.DueDate != nil {
		inv.DueDate = *c.DueDate
	}
}

// Validator runs the invoice rule set.
type Validator struct {
	checker  NumberChecker
	validate *validator.Validate
}

// New builds a Validator using checker for the uniqueness pre-check.
func New(checker NumberChecker) *Validator {
	return &Validator{
		checker:  checker,
		validate: validator.New(),
	}
}

type run struct {
	ctx      context.Context
	mode     Mode
	existing *entity.Invoice
	today    time.Time
	changes  Changes
	errs     FieldErrors
}

// Validate checks payload in the given mode and returns the normalized changes.
// existing is the stored record for ModeUpdate and nil for ModeCreate; today is
// compared as a UTC calendar date. A failed check yields FieldErrors; any other
// error comes from the NumberChecker.
func (v *Validator) Validate(ctx context.Context, mode Mode, payload dto.InvoicePayload, existing *entity.Invoice, today time.Time) (Changes, error) {
	r := &run{
		ctx:      ctx,
		mode:     mode,
		existing: existing,
		today:    entity.TruncateDate(today),
		errs:     FieldErrors{},
	}

	if mode == ModeCreate {
		if err := v.invoiceNumber(r, payload.InvoiceNumber); err != nil {
			return Changes{}, err
		}
	}
	v.clientName(r, payload.ClientName)
	amount(r, payload.Amount)
	status(r, payload.Status)
	issueDate(r, payload.IssueDate)
	dueDate(r, payload.DueDate)
	v.file(r, payload.File)
	dateOrder(r, payload)

	if len(r.errs) > 0 {
		return Changes{}, r.errs
	}
	return r.changes, nil
}

// present trims raw and reports whether the field should be validated further.
// Missing fields are only an error in create mode.
func (r *run) present(field string, raw *string) (string, bool) {
	if raw == nil {
		if r.mode == ModeCreate {
			r.errs.Add(field, CodeRequired, "This field is required.")
		}
		return "", false
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		r.errs.Add(field, CodeBlank, "This field may not be blank.")
		return "", false
	}
	return value, true
}

func (v *Validator) invoiceNumber(r *run, raw *string) error {
	value, ok := r.present(FieldInvoiceNumber, raw)
	if !ok {
		return nil
	}
	if err := v.validate.Var(value, fmt.Sprintf("max=%d", MaxInvoiceNumberLength)); err != nil {
		r.errs.Add(FieldInvoiceNumber, CodeTooLong,
			fmt.Sprintf("Ensure this field has no more than %d characters.", MaxInvoiceNumberLength))
		return nil
	}

	normalized := strings.ToUpper(value)
	if v.checker != nil {
		taken, err := v.checker.InvoiceNumberExists(r.ctx, normalized)
		if err != nil {
			return fmt.Errorf("check invoice number: %w", err)
		}
		if taken {
			r.errs.Add(FieldInvoiceNumber, CodeDuplicateValue, "Invoice number already exists.")
			return nil
		}
	}

	r.changes.InvoiceNumber = &normalized
	return nil
}

func (v *Validator) clientName(r *run, raw *string) {
	value, ok := r.present(FieldClientName, raw)
	if !ok {
		return
	}
	if utf8.RuneCountInString(value) < MinClientNameLength {
		r.errs.Add(FieldClientName, CodeTooShort,
			fmt.Sprintf("Client name must be at least %d characters long.", MinClientNameLength))
		return
	}
	if err := v.validate.Var(value, fmt.Sprintf("max=%d", MaxClientNameLength)); err != nil {
		r.errs.Add(FieldClientName, CodeTooLong,
			fmt.Sprintf("Ensure this field has no more than %d characters.", MaxClientNameLength))
		return
	}

	normalized := titleCase(value)
	r.changes.ClientName = &normalized
}

// titleCase upper-cases the first letter of every run of cased letters and lower-cases
// the rest, so "o'brien" becomes "O'Brien" and "acme.co" becomes "Acme.Co".
func titleCase(value string) string {
	// Casers carry state and are not shared across calls.
	caser := cases.Title(language.Und)

	var b strings.Builder
	b.Grow(len(value))
	start := 0
	inWord := false
	for i, c := range value {
		cased := isCased(c)
		switch {
		case cased && !inWord:
			b.WriteString(value[start:i])
			start, inWord = i, true
		case !cased && inWord:
			b.WriteString(caser.String(value[start:i]))
			start, inWord = i, false
		}
	}
	if inWord {
		b.WriteString(caser.String(value[start:]))
	} else {
		b.WriteString(value[start:])
	}
	return b.String()
}

func isCased(c rune) bool {
	return unicode.IsUpper(c) || unicode.IsLower(c) || unicode.IsTitle(c)
}

func amount(r *run, raw *dto.RawNumber) {
	var text *string
	if raw != nil {
		s := string(*raw)
		text = &s
	}
	value, ok := r.present(FieldAmount, text)
	if !ok {
		return
	}

	parsed, err := decimal.NewFromString(value)
	if err != nil {
		r.errs.Add(FieldAmount, CodeInvalid, "A valid number is required.")
		return
	}

	// Comparisons rescale both operands to the smaller exponent, so the exponent is
	// bounded first. Widened to int64 so negating MinInt32 cannot overflow.
	exp := int64(parsed.Exponent())
	if exp < -MaxAmountDecimalPlaces {
		r.errs.Add(FieldAmount, CodeMaxDecimalPlaces,
			fmt.Sprintf("Ensure that there are no more than %d decimal places.", MaxAmountDecimalPlaces))
		if !parsed.IsPositive() {
			r.errs.Add(FieldAmount, CodeOutOfRange, "Amount must be greater than 0.")
		}
		return
	}

	valid := true
	switch {
	case !parsed.IsPositive():
		r.errs.Add(FieldAmount, CodeOutOfRange, "Amount must be greater than 0.")
		valid = false
	case exp > maxAmountExponent || parsed.GreaterThan(MaxAmount):
		r.errs.Add(FieldAmount, CodeOutOfRange, "Amount cannot exceed 999,999.99.")
		valid = false
	}
	if valid {
		r.changes.Amount = &parsed
	}
}

func status(r *run, raw *string) {
	value, ok := r.present(FieldStatus, raw)
	if !ok {
		return
	}
	candidate := entity.InvoiceStatus(value)
	if !lo.Contains(entity.InvoiceStatuses, candidate) {
		r.errs.Add(FieldStatus, CodeInvalidEnum,
			fmt.Sprintf("Invalid status. Must be one of: %s", strings.Join(lo.Map(entity.InvoiceStatuses, func(s entity.InvoiceStatus, _ int) string {
				return s.String()
			}), ", ")))
		return
	}
	r.changes.Status = &candidate
}

func issueDate(r *run, raw *string) {
	parsed, ok := parseDate(r, FieldIssueDate, raw)
	if !ok {
		return
	}
	if parsed.After(r.today) {
		r.errs.Add(FieldIssueDate, CodeFutureDate, "Issue date cannot be in the future.")
		return
	}
	r.changes.IssueDate = &parsed
}

func dueDate(r *run, raw *string) {
	parsed, ok := parseDate(r, FieldDueDate, raw)
	if !ok {
		return
	}
	r.changes.DueDate = &parsed
}

func parseDate(r *run, field string, raw *string) (time.Time, bool) {
	value, ok := r.present(field, raw)
	if !ok {
		return time.Time{}, false
	}
	parsed, err := ParseDate(value)
	if err != nil {
		r.errs.Add(field, CodeInvalid, "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		return time.Time{}, false
	}
	return parsed, true
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(entity.DateLayout, strings.TrimSpace(value), time.UTC)
}

func (v *Validator) file(r *run, upload *dto.FileUpload) {
	if upload == nil {
		return
	}
	valid := true
	if err := v.validate.Var(upload.Name, fmt.Sprintf("max=%d", MaxFileNameLength)); err != nil {
		r.errs.Add(FieldFile, CodeTooLong,
			fmt.Sprintf("Ensure this filename has at most %d characters.", MaxFileNameLength))
		valid = false
	}
	if upload.Size > MaxFileSize {
		r.errs.Add(FieldFile, CodeFileTooLarge, "File size cannot exceed 10MB.")
		valid = false
	}
	if !HasAllowedExtension(upload.Name) {
		r.errs.Add(FieldFile, CodeUnsupportedFileType,
			fmt.Sprintf("File type not supported. Allowed types: %s", strings.Join(AllowedFileExtensions, ", ")))
		valid = false
	}
	if valid {
		r.changes.File = upload
	}
}

// HasAllowedExtension reports whether name ends with one of AllowedFileExtensions.
func HasAllowedExtension(name string) bool {
	lower := strings.ToLower(name)
	return lo.SomeBy(AllowedFileExtensions, func(ext string) bool {
		return strings.HasSuffix(lower, ext)
	})
}

// dateOrder compares the resolved dates. A supplied date that failed its own rule is
// unresolved; an absent one falls back to the stored record in update mode.
func dateOrder(r *run, payload dto.InvoicePayload) {
	issue, ok := resolveDate(r.changes.IssueDate, payload.IssueDate == nil, r.existing, func(inv *entity.Invoice) time.Time {
		return inv.IssueDate
	})
	if !ok {
		return
	}
	due, ok := resolveDate(r.changes.DueDate, payload.DueDate == nil, r.existing, func(inv *entity.Invoice) time.Time {
		return inv.DueDate
	})
	if !ok {
		return
	}
	if due.Before(issue) {
		r.errs.Add(FieldDueDate, CodeDateOrderViolation, "Due date cannot be earlier than issue date.")
	}
}

func resolveDate(changed *time.Time, absent bool, existing *entity.Invoice, stored func(*entity.Invoice) time.Time) (time.Time, bool) {
	if changed != nil {
		return *changed, true
	}
	if absent && existing != nil {
		return entity.TruncateDate(stored(existing)), true
	}
	return time.Time{}, false
}
