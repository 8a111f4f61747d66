package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// DateLayout is the wire and storage layout for calendar dates.
const DateLayout = "2006-01-02"

// InvoiceStatus enumerates the lifecycle states of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusSent    InvoiceStatus = "SENT"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

// InvoiceStatuses lists every accepted status in declaration order.
var InvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
}

func (s InvoiceStatus) String() string {
	return string(s)
}

// Invoice is one invoice record stored in the relational database.
type Invoice struct {
	bun.BaseModel `bun:"table:invoices"`

	ID            string          `bun:"id,pk" json:"id"`
	InvoiceNumber string          `bun:"invoice_number,notnull,unique" json:"invoice_number"`
	ClientName    string          `bun:"client_name,notnull" json:"client_name"`
	Amount        decimal.Decimal `bun:"amount,type:numeric(10,2),notnull" json:"amount"`
	Status        InvoiceStatus   `bun:"status,notnull" json:"status"`
	IssueDate     time.Time       `bun:"issue_date,type:date,notnull" json:"issue_date"`
	DueDate       time.Time       `bun:"due_date,type:date,notnull" json:"due_date"`
	FileKey       string          `bun:"file_key,nullzero" json:"file_key,omitempty"`
	FileName      string          `bun:"file_name,nullzero" json:"file_name,omitempty"`
	FileSize      int64           `bun:"file_size,nullzero" json:"file_size,omitempty"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero" json:"updated_at"`
}

// HasFile reports whether a document is attached.
func (i *Invoice) HasFile() bool {
	return i != nil && i.FileKey != ""
}

// DaysUntilDue returns the signed number of calendar days from today to the due date.
func (i *Invoice) DaysUntilDue(today time.Time) int {
	due := TruncateDate(i.DueDate)
	return int(due.Sub(TruncateDate(today)).Hours() / 24)
}

// IsOverdue reports whether the due date lies strictly before today.
func (i *Invoice) IsOverdue(today time.Time) bool {
	return TruncateDate(i.DueDate).Before(TruncateDate(today))
}

// TruncateDate drops the clock part of t, keeping its calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
