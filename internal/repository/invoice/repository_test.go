package invoice

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/Additional-Code/invoicedesk/internal/entity"
	"github.com/Additional-Code/invoicedesk/internal/filter"
)

// offlineDB formats queries for Postgres without opening a connection.
func offlineDB(t *testing.T) *bun.DB {
	t.Helper()
	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector()), pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// requireInOrder asserts that every part occurs in query, each after the previous one.
func requireInOrder(t *testing.T, query string, parts ...string) {
	t.Helper()
	rest := query
	for _, part := range parts {
		idx := strings.Index(rest, part)
		require.GreaterOrEqual(t, idx, 0, "%q missing or out of order in %s", part, query)
		rest = rest[idx+len(part):]
	}
}

func TestListQueryOrdersNewestFirstThenPages(t *testing.T) {
	status := entity.InvoiceStatusSent
	var dest []entity.Invoice

	query := listQuery(offlineDB(t), filter.InvoiceFilter{Status: &status, ClientName: "acme", Limit: 10, Offset: 5}, &dest).String()

	requireInOrder(t, query,
		`FROM "invoices" AS "invoice"`,
		"WHERE",
		`(status = 'SENT')`,
		`(LOWER(client_name) LIKE '%acme%' ESCAPE '!')`,
		"ORDER BY created_at DESC, id DESC",
		"LIMIT 10",
		"OFFSET 5",
	)
}

func TestListQueryWithoutPaging(t *testing.T) {
	var dest []entity.Invoice

	query := listQuery(offlineDB(t), filter.InvoiceFilter{}, &dest).String()

	assert.Contains(t, query, "ORDER BY created_at DESC, id DESC")
	assert.NotContains(t, query, "WHERE")
	assert.NotContains(t, query, "LIMIT")
	assert.NotContains(t, query, "OFFSET")
}

func TestUpdateQuerySkipsImmutableColumns(t *testing.T) {
	created := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	inv := &entity.Invoice{
		ID:            "01J0000000000000000000000A",
		InvoiceNumber: "INV-001",
		ClientName:    "Acme Corp",
		Amount:        decimal.RequireFromString("10.50"),
		Status:        entity.InvoiceStatusPaid,
		IssueDate:     created,
		DueDate:       created.AddDate(0, 0, 14),
		CreatedAt:     created,
		UpdatedAt:     created.Add(time.Hour),
	}

	query := updateQuery(offlineDB(t), inv).String()
	set, where, found := strings.Cut(query, "WHERE")
	require.True(t, found, query)

	assert.Contains(t, set, `"client_name" = 'Acme Corp'`)
	assert.Contains(t, set, `"status" = 'PAID'`)
	assert.Contains(t, set, `"updated_at" = `)
	assert.NotContains(t, set, `"invoice_number"`)
	assert.NotContains(t, set, `"created_at"`)
	assert.NotContains(t, set, `"id" =`)
	assert.Contains(t, where, `"invoice"."id" = '01J0000000000000000000000A'`)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "mysql duplicate entry", err: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'INV-1' for key 'invoice_number'"}, want: true},
		{name: "wrapped mysql duplicate", err: fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062}), want: true},
		{name: "mysql other error", err: &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}, want: false},
		{name: "sqlite unique", err: errors.New("UNIQUE constraint failed: invoices.invoice_number"), want: true},
		{name: "connection error", err: errors.New("dial tcp: connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
