package model

// InsightType classifies an insight; unknown values are treated as InsightOther.
type InsightType string

const (
	InsightPurchaseFrequency InsightType = "purchase_frequency"
	InsightPriceTrend        InsightType = "price_trend"
	InsightCommonPurchase    InsightType = "common_purchase"
	InsightStorePattern      InsightType = "store_pattern"
	InsightOther             InsightType = "other"
)

// Normalize maps unknown types to InsightOther.
func (t InsightType) Normalize() InsightType {
	switch t {
	case InsightPurchaseFrequency, InsightPriceTrend, InsightCommonPurchase, InsightStorePattern:
		return t
	}
	return InsightOther
}

// Confidence is the backend's confidence in an insight.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// InsightDataPoint references the receipt observation behind an insight.
type InsightDataPoint struct {
	Date      *Date    `json:"date"`
	Price     *Decimal `json:"price"`
	ReceiptID *string  `json:"receipt_id"`
}

// Insight is a computed observation about the user's purchases.
type Insight struct {
	Type           InsightType        `json:"type"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	DataPoints     int                `json:"data_points"`
	Confidence     Confidence         `json:"confidence"`
	UnderlyingData []InsightDataPoint `json:"underlying_data"`
	GeneratedAt    Timestamp          `json:"generated_at"`
}

// InsightList is the insights response; Message explains an empty list.
type InsightList struct {
	Insights []Insight `json:"insights"`
	Message  *string   `json:"message"`
}
