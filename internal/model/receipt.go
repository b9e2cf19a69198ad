package model

// ParseStatus is the backend parse state of an uploaded receipt.
type ParseStatus string

const (
	ParsePending     ParseStatus = "pending"
	ParseSuccess     ParseStatus = "success"
	ParseFailed      ParseStatus = "failed"
	ParseNeedsReview ParseStatus = "needs_review"
)

// Valid reports whether s is one of the known statuses.
func (s ParseStatus) Valid() bool {
	switch s {
	case ParsePending, ParseSuccess, ParseFailed, ParseNeedsReview:
		return true
	}
	return false
}

// Receipt is a list entry; the client holds an immutable snapshot per fetch.
type Receipt struct {
	ReceiptID       string      `json:"receipt_id"`
	StoreName       *string     `json:"store_name"`
	PurchaseDate    *Date       `json:"purchase_date"`
	TotalAmount     *Decimal    `json:"total_amount"`
	ParseStatus     ParseStatus `json:"parse_status"`
	UploadTimestamp Timestamp   `json:"upload_timestamp"`
}

// LineItem is a single parsed product line.
type LineItem struct {
	ID          string   `json:"id"`
	ProductName string   `json:"product_name"`
	Quantity    *Decimal `json:"quantity"`
	UnitPrice   *Decimal `json:"unit_price"`
	TotalPrice  Decimal  `json:"total_price"`
}

// ReceiptDetail is a receipt with its line items.
type ReceiptDetail struct {
	Receipt
	LineItems  []LineItem `json:"line_items"`
	ParseError *string    `json:"parse_error"`
}

// ReceiptPage is one page of the receipts list.
type ReceiptPage struct {
	Receipts []Receipt `json:"receipts"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// UploadResult acknowledges an accepted upload.
type UploadResult struct {
	ReceiptID string `json:"receipt_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}
