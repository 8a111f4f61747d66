package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDueDateComputations(t *testing.T) {
	inv := &Invoice{DueDate: date(2024, time.June, 1)}

	tests := []struct {
		name    string
		today   time.Time
		days    int
		overdue bool
	}{
		{name: "a week ahead", today: date(2024, time.May, 25), days: 7},
		{name: "due today", today: date(2024, time.June, 1), days: 0},
		{name: "one day late", today: date(2024, time.June, 2), days: -1, overdue: true},
		{name: "clock time ignored", today: time.Date(2024, time.May, 31, 23, 59, 0, 0, time.UTC), days: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.days, inv.DaysUntilDue(tt.today))
			assert.Equal(t, tt.overdue, inv.IsOverdue(tt.today))
		})
	}
}

func TestHasFile(t *testing.T) {
	var missing *Invoice
	assert.False(t, missing.HasFile())
	assert.False(t, (&Invoice{}).HasFile())
	assert.True(t, (&Invoice{FileKey: "invoices/01J.pdf"}).HasFile())
}
