package seeder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Additional-Code/invoicedesk/internal/entity"
	"github.com/Additional-Code/invoicedesk/internal/validation"
)

func TestSampleInvoicesAreValidRecords(t *testing.T) {
	now := time.Date(2024, time.June, 15, 13, 45, 0, 0, time.UTC)
	samples := SampleInvoices(now)

	seen := map[entity.InvoiceStatus]bool{}
	ids := map[string]bool{}
	for _, inv := range samples {
		seen[inv.Status] = true
		ids[inv.ID] = true

		assert.LessOrEqual(t, len(inv.InvoiceNumber), validation.MaxInvoiceNumberLength)
		assert.False(t, inv.IssueDate.After(entity.TruncateDate(now)), inv.InvoiceNumber)
		assert.False(t, inv.DueDate.Before(inv.IssueDate), inv.InvoiceNumber)
		assert.True(t, inv.Amount.IsPositive())
		assert.LessOrEqual(t, -inv.Amount.Exponent(), int32(2))
	}

	assert.Len(t, ids, len(samples))
	for _, status := range entity.InvoiceStatuses {
		assert.True(t, seen[status], status)
	}
}
