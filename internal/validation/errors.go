package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Additional-Code/invoicedesk/pkg/errorbank"
)

// Code identifies why a field was rejected.
type Code string

const (
	CodeRequired            Code = "required"
	CodeBlank               Code = "blank"
	CodeInvalid             Code = "invalid"
	CodeTooShort            Code = "too_short"
	CodeTooLong             Code = "too_long"
	CodeMaxDecimalPlaces    Code = "max_decimal_places"
	CodeOutOfRange          Code = "out_of_range"
	CodeInvalidEnum         Code = "invalid_enum"
	CodeFutureDate          Code = "future_date"
	CodeDuplicateValue      Code = "duplicate_value"
	CodeFileTooLarge        Code = "file_too_large"
	CodeUnsupportedFileType Code = "unsupported_file_type"
	CodeDateOrderViolation  Code = "date_order_violation"
)

// Violation is a single rejected rule on a field.
type Violation struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// FieldErrors maps field names to every violation found on them.
type FieldErrors map[string][]Violation

// Add records a violation for field.
func (e FieldErrors) Add(field string, code Code, message string) {
	e[field] = append(e[field], Violation{Code: code, Message: message})
}

// Has reports whether field carries a violation with the given code.
func (e FieldErrors) Has(field string, code Code) bool {
	for _, v := range e[field] {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Error satisfies the error interface with a stable, field-sorted summary.
func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		codes := make([]string, 0, len(e[field]))
		for _, v := range e[field] {
			codes = append(codes, string(v.Code))
		}
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(codes, ",")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AppError renders the violations as a 400 carrying the field map under "fields".
func (e FieldErrors) AppError() *errorbank.AppError {
	return errorbank.BadRequest("invalid invoice payload",
		errorbank.WithCause(e),
		errorbank.WithDetail("fields", e),
	)
}

// Duplicate builds the field error reported for a taken invoice number.
func Duplicate() FieldErrors {
	errs := FieldErrors{}
	errs.Add(FieldInvoiceNumber, CodeDuplicateValue, "Invoice number already exists.")
	return errs
}
