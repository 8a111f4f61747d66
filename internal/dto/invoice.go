package dto

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/Additional-Code/invoicedesk/internal/entity"
)

// InvoicePayload is the raw create/update body. Nil fields were not supplied.
type InvoicePayload struct {
	InvoiceNumber *string     `json:"invoice_number"`
	ClientName    *string     `json:"client_name"`
	Amount        *RawNumber  `json:"amount"`
	Status        *string     `json:"status"`
	IssueDate     *string     `json:"issue_date"`
	DueDate       *string     `json:"due_date"`
	File          *FileUpload `json:"-"`
}

// RawNumber keeps the textual form of a number so it can be parsed and reported per field.
// It accepts both JSON numbers and JSON strings.
type RawNumber string

// UnmarshalJSON implements json.Unmarshaler.
func (n *RawNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = RawNumber(s)
		return nil
	}
	*n = RawNumber(data)
	return nil
}

// FileUpload describes an attached document before it reaches storage.
type FileUpload struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// InvoiceListItem is the abbreviated projection used by list responses.
type InvoiceListItem struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClientName    string    `json:"client_name"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	IssueDate     string    `json:"issue_date"`
	DueDate       string    `json:"due_date"`
	CreatedAt     time.Time `json:"created_at"`
}

// InvoiceDetail is the full projection with computed fields.
type InvoiceDetail struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClientName    string    `json:"client_name"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	IssueDate     string    `json:"issue_date"`
	DueDate       string    `json:"due_date"`
	FileName      string    `json:"file_name,omitempty"`
	FileSize      int64     `json:"file_size,omitempty"`
	FileURL       string    `json:"file_url,omitempty"`
	DaysUntilDue  int       `json:"days_until_due"`
	IsOverdue     bool      `json:"is_overdue"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewInvoiceListItem projects an invoice into its list view.
func NewInvoiceListItem(inv *entity.Invoice) InvoiceListItem {
	return InvoiceListItem{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientName:    inv.ClientName,
		Amount:        inv.Amount.StringFixed(2),
		Status:        inv.Status.String(),
		IssueDate:     inv.IssueDate.Format(entity.DateLayout),
		DueDate:       inv.DueDate.Format(entity.DateLayout),
		CreatedAt:     inv.CreatedAt,
	}
}

// NewInvoiceDetail projects an invoice into its detail view relative to today.
// fileURL must already be absolute; it is dropped when no file is attached.
func NewInvoiceDetail(inv *entity.Invoice, today time.Time, fileURL string) InvoiceDetail {
	detail := InvoiceDetail{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientName:    inv.ClientName,
		Amount:        inv.Amount.StringFixed(2),
		Status:        inv.Status.String(),
		IssueDate:     inv.IssueDate.Format(entity.DateLayout),
		DueDate:       inv.DueDate.Format(entity.DateLayout),
		DaysUntilDue:  inv.DaysUntilDue(today),
		IsOverdue:     inv.IsOverdue(today),
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
	if inv.HasFile() {
		detail.FileName = inv.FileName
		detail.FileSize = inv.FileSize
		detail.FileURL = fileURL
	}
	return detail
}
