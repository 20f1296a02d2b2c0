package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// POLineItem is a single ordered line on a purchase order.
type POLineItem struct {
	ItemID      string          `json:"item_id,omitempty"`
	Description string          `json:"description"`
	Quantity    float64         `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// PurchaseOrder is a read-only catalog record. The catalog is loaded once at
// process start and never mutated during request processing.
type PurchaseOrder struct {
	PONumber  string          `json:"po_number"`
	Supplier  string          `json:"supplier"`
	Date      time.Time       `json:"date"`
	LineItems []POLineItem    `json:"line_items"`
	Total     decimal.Decimal `json:"total"`
}
