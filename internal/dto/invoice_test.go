package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/invoicedesk/internal/entity"
)

func TestPayloadAcceptsNumberOrString(t *testing.T) {
	cases := map[string]string{
		`{"amount": 150.5}`:    "150.5",
		`{"amount": "150.50"}`: "150.50",
		`{"amount": "abc"}`:    "abc",
	}
	for body, want := range cases {
		var p InvoicePayload
		require.NoError(t, json.Unmarshal([]byte(body), &p), body)
		require.NotNil(t, p.Amount, body)
		assert.Equal(t, want, string(*p.Amount), body)
	}
}

func TestPayloadLeavesAbsentFieldsNil(t *testing.T) {
	var p InvoicePayload
	require.NoError(t, json.Unmarshal([]byte(`{"status":"PAID"}`), &p))

	require.NotNil(t, p.Status)
	assert.Equal(t, "PAID", *p.Status)
	assert.Nil(t, p.InvoiceNumber)
	assert.Nil(t, p.Amount)
	assert.Nil(t, p.DueDate)
}

func sampleInvoice() *entity.Invoice {
	created := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	return &entity.Invoice{
		ID:            "01J0000000000000000000000A",
		InvoiceNumber: "INV-001",
		ClientName:    "Acme Corp",
		Amount:        decimal.RequireFromString("1500"),
		Status:        entity.InvoiceStatusSent,
		IssueDate:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestListItemFormatsAmountAndDates(t *testing.T) {
	item := NewInvoiceListItem(sampleInvoice())

	assert.Equal(t, "1500.00", item.Amount)
	assert.Equal(t, "2024-06-01", item.IssueDate)
	assert.Equal(t, "2024-06-20", item.DueDate)
	assert.Equal(t, "SENT", item.Status)
}

func TestDetailComputedFields(t *testing.T) {
	inv := sampleInvoice()

	detail := NewInvoiceDetail(inv, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), "https://files/x.pdf")
	assert.Equal(t, 5, detail.DaysUntilDue)
	assert.False(t, detail.IsOverdue)
	assert.Empty(t, detail.FileURL)
	assert.Empty(t, detail.FileName)

	detail = NewInvoiceDetail(inv, time.Date(2024, 6, 22, 0, 0, 0, 0, time.UTC), "")
	assert.Equal(t, -2, detail.DaysUntilDue)
	assert.True(t, detail.IsOverdue)
}

func TestDetailIncludesAttachment(t *testing.T) {
	inv := sampleInvoice()
	inv.FileKey = "invoices/01j0.pdf"
	inv.FileName = "march.pdf"
	inv.FileSize = 2048

	detail := NewInvoiceDetail(inv, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), "https://files/invoices/01j0.pdf")
	assert.Equal(t, "march.pdf", detail.FileName)
	assert.EqualValues(t, 2048, detail.FileSize)
	assert.Equal(t, "https://files/invoices/01j0.pdf", detail.FileURL)

	raw, err := json.Marshal(detail)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"file_url":"https://files/invoices/01j0.pdf"`)
}
