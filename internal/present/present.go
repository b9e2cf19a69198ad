// Package present formats backend data for display.
package present

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/and161185/nimbly/internal/model"
)

// StoreName title-cases every word of name.
func StoreName(name *string) string {
	if name == nil || strings.TrimSpace(*name) == "" {
		return "Store unknown"
	}
	words := strings.Split(*name, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// Amount renders a dollar amount with two decimals.
func Amount(d *model.Decimal) string {
	if d == nil {
		return "Amount unknown"
	}
	return Money(*d)
}

// Money renders a non-null amount.
func Money(d model.Decimal) string {
	f := d.Float()
	if f < 0 {
		return fmt.Sprintf("-$%.2f", -f)
	}
	return fmt.Sprintf("$%.2f", f)
}

// Date renders a purchase date as "Jan 5, 2026".
func Date(d *model.Date) string {
	if d == nil || d.IsZero() {
		return "Date unknown"
	}
	return d.Format("Jan 2, 2006")
}

// Initials are the first two letters of the email's local part.
func Initials(email string) string {
	local, _, _ := strings.Cut(email, "@")
	r := []rune(strings.TrimSpace(local))
	if len(r) == 0 {
		return "?"
	}
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

// Greeting picks the dashboard greeting for a local hour.
func Greeting(hour int) string {
	switch {
	case hour < 12:
		return "Good morning"
	case hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// StatusLabel describes a parse status.
func StatusLabel(s model.ParseStatus) string {
	switch s {
	case model.ParseSuccess:
		return "Successfully parsed"
	case model.ParsePending:
		return "Processing receipt"
	case model.ParseFailed:
		return "Parsing incomplete"
	case model.ParseNeedsReview:
		return "Needs review"
	}
	return string(s)
}

// Row is a receipt ready for a list view.
type Row struct {
	ID     string
	Store  string
	Date   string
	Amount string
	Status string
	// Attention is set for receipts the user should look at.
	Attention bool
}

// ReceiptRows formats a page of receipts, keeping backend order.
func ReceiptRows(rs []model.Receipt) []Row {
	rows := make([]Row, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, Row{
			ID:        r.ReceiptID,
			Store:     StoreName(r.StoreName),
			Date:      Date(r.PurchaseDate),
			Amount:    Amount(r.TotalAmount),
			Status:    StatusLabel(r.ParseStatus),
			Attention: r.ParseStatus == model.ParseFailed || r.ParseStatus == model.ParseNeedsReview,
		})
	}
	return rows
}
