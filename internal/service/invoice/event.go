package invoice

import (
	"time"

	"github.com/Additional-Code/invoicedesk/internal/entity"
)

// Event types published on the invoice topic.
const (
	EventCreated = "invoice.created"
	EventUpdated = "invoice.updated"
	EventDeleted = "invoice.deleted"
)

// EventHeader carries the event type on every message.
const EventHeader = "event_type"

// Event is the payload of every invoice lifecycle message.
type Event struct {
	Type          string    `json:"type"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClientName    string    `json:"client_name,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Status        string    `json:"status,omitempty"`
	DueDate       string    `json:"due_date,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func newEvent(eventType string, inv *entity.Invoice, at time.Time) Event {
	ev := Event{
		Type:          eventType,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		OccurredAt:    at,
	}
	if eventType != EventDeleted {
		ev.ClientName = inv.ClientName
		ev.Amount = inv.Amount.StringFixed(2)
		ev.Status = inv.Status.String()
		ev.DueDate = inv.DueDate.Format(entity.DateLayout)
	}
	return ev
}
