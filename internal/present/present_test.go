package present

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/and161185/nimbly/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestStoreName(t *testing.T) {
	assert.Equal(t, "Whole Foods", StoreName(ptr("whole foods")))
	assert.Equal(t, "Trader Joe's", StoreName(ptr("TRADER JOE'S")))
	assert.Equal(t, "Store unknown", StoreName(nil))
	assert.Equal(t, "Store unknown", StoreName(ptr("  ")))
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "$42.10", Amount(ptr(model.Decimal(42.1))))
	assert.Equal(t, "$0.00", Amount(ptr(model.Decimal(0))))
	assert.Equal(t, "-$3.50", Money(-3.5))
	assert.Equal(t, "Amount unknown", Amount(nil))
}

func TestDate(t *testing.T) {
	d := model.Date{Time: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "Jan 5, 2026", Date(&d))
	assert.Equal(t, "Date unknown", Date(nil))
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "JA", Initials("jane@example.com"))
	assert.Equal(t, "X", Initials("x@y.z"))
	assert.Equal(t, "?", Initials(""))
	assert.Equal(t, "?", Initials("@example.com"))
}

func TestGreeting(t *testing.T) {
	assert.Equal(t, "Good morning", Greeting(6))
	assert.Equal(t, "Good afternoon", Greeting(12))
	assert.Equal(t, "Good evening", Greeting(21))
}

func TestReceiptRows_FromBackendPayload(t *testing.T) {
	raw := `{"receipts":[{"receipt_id":"r1","store_name":"whole foods","purchase_date":"2026-01-05","total_amount":42.10,"parse_status":"success","upload_timestamp":"2026-01-05T10:00:00Z"},{"receipt_id":"r2","store_name":null,"purchase_date":null,"total_amount":null,"parse_status":"needs_review","upload_timestamp":"2026-01-06T10:00:00Z"}],"total":2,"limit":20,"offset":0}`
	var page model.ReceiptPage
	require.NoError(t, json.Unmarshal([]byte(raw), &page))

	rows := ReceiptRows(page.Receipts)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{ID: "r1", Store: "Whole Foods", Date: "Jan 5, 2026", Amount: "$42.10", Status: "Successfully parsed"}, rows[0])
	assert.Equal(t, Row{ID: "r2", Store: "Store unknown", Date: "Date unknown", Amount: "Amount unknown", Status: "Needs review", Attention: true}, rows[1])
}
