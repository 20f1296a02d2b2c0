package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillTo identifies the invoiced party as printed on the document.
type BillTo struct {
	CompanyName string `json:"company_name"`
	Address     string `json:"address"`
}

// LineItem is a single invoice line as produced by the extraction collaborator.
type LineItem struct {
	ItemID               string          `json:"item_id,omitempty"`
	Description          string          `json:"description"`
	Quantity             float64         `json:"quantity"`
	Unit                 string          `json:"unit,omitempty"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	LineTotal            decimal.Decimal `json:"line_total"`
	ExtractionConfidence float64         `json:"extraction_confidence"`
}

// Totals carries the invoice-level financial summary.
// Quantity math against line items is not assumed to reconcile; that is checked downstream.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	VATRate   float64         `json:"vat_rate"`
	VATAmount decimal.Decimal `json:"vat_amount"`
	TotalDue  decimal.Decimal `json:"total_due"`
}

// Invoice is the structured extraction result for a single document.
// Immutable once decoded; owned by the pipeline run that processes it.
type Invoice struct {
	InvoiceNumber   string     `json:"invoice_number"`
	InvoiceDate     time.Time  `json:"invoice_date"`
	SupplierName    string     `json:"supplier_name"`
	SupplierAddress string     `json:"supplier_address,omitempty"`
	SupplierVAT     string     `json:"supplier_vat,omitempty"`
	PONumber        string     `json:"po_number"`
	PaymentTerms    string     `json:"payment_terms,omitempty"`
	Currency        string     `json:"currency"`
	BillTo          BillTo     `json:"bill_to"`
	LineItems       []LineItem `json:"line_items"`
	Totals          Totals     `json:"totals"`
}
