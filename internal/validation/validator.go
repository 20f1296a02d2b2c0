// Package validation quantifies how well a matched invoice/PO pair agrees:
// per-pair price, quantity and arithmetic checks, total-level variance, and a
// full audit report for a matched purchase order.
package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/apaudit/invoice-auditor/internal/entity"
	"github.com/apaudit/invoice-auditor/internal/pairing"
	"github.com/apaudit/invoice-auditor/internal/similarity"
)

// ItemCheck is the numeric validation of one committed invoice/PO pair.
// Variances are signed (invoice minus PO). Percentages are nil when the
// PO-side denominator is zero; the tolerance booleans are then false.
type ItemCheck struct {
	ItemID      string `json:"item_id,omitempty"`
	Description string `json:"description,omitempty"`

	QuantityMatch   bool    `json:"quantity_match"`
	InvoiceQuantity float64 `json:"invoice_quantity"`
	POQuantity      float64 `json:"po_quantity"`

	InvoiceUnitPrice decimal.Decimal `json:"invoice_unit_price"`
	POUnitPrice      decimal.Decimal `json:"po_unit_price"`

	UnitPriceVariance    decimal.Decimal `json:"unit_price_variance"`
	UnitPriceVariancePct *float64        `json:"unit_price_variance_percent"`
	UnitPriceWithin2Pct  bool            `json:"unit_price_within_2percent"`
	UnitPriceWithin5Pct  bool            `json:"unit_price_within_5percent"`
	UnitPriceWithin15Pct bool            `json:"unit_price_within_15percent"`

	ItemTotalVariance    decimal.Decimal `json:"item_total_variance"`
	ItemTotalVariancePct *float64        `json:"item_total_variance_percent"`
	ItemTotalWithin1Pct  bool            `json:"item_total_variance_within_1percent"`
	ItemTotalWithin5Pct  bool            `json:"item_total_variance_within_5percent"`
	ItemTotalWithin15Pct bool            `json:"item_total_variance_within_15percent"`

	InvoiceMathConsistent bool `json:"invoice_math_consistent"`
	POMathConsistent      bool `json:"po_math_consistent"`
}

// TotalVarianceResult compares invoice and PO totals and checks the invoice
// against itself.
type TotalVarianceResult struct {
	VarianceAmount  decimal.Decimal `json:"variance_amount"`
	VariancePercent *float64        `json:"variance_percent"`

	// InvoiceTotalValid is true when the variance passes either the absolute
	// or the relative tolerance, whichever is more lenient.
	InvoiceTotalValid bool `json:"invoice_total_is_valid"`

	// MathErrorOnInvoice flags the invoice contradicting itself
	// (subtotal + vat != total_due), independent of any PO comparison.
	MathErrorOnInvoice bool `json:"math_error_on_invoice"`
}

// CheckItem validates one paired invoice/PO line.
func CheckItem(inv entity.LineItem, po entity.POLineItem, tol Tolerances) ItemCheck {
	check := ItemCheck{
		ItemID:          inv.ItemID,
		Description:     inv.Description,
		QuantityMatch:   inv.Quantity == po.Quantity,
		InvoiceQuantity: inv.Quantity,
		POQuantity:      po.Quantity,

		InvoiceUnitPrice: inv.UnitPrice,
		POUnitPrice:      po.UnitPrice,
	}

	check.UnitPriceVariance = inv.UnitPrice.Sub(po.UnitPrice).Round(2)
	check.UnitPriceVariancePct = variancePercent(inv.UnitPrice.Sub(po.UnitPrice), po.UnitPrice)
	check.UnitPriceWithin2Pct = withinPct(check.UnitPriceVariancePct, 2)
	check.UnitPriceWithin5Pct = withinPct(check.UnitPriceVariancePct, 5)
	check.UnitPriceWithin15Pct = withinPct(check.UnitPriceVariancePct, 15)

	check.ItemTotalVariance = inv.LineTotal.Sub(po.LineTotal).Round(2)
	check.ItemTotalVariancePct = variancePercent(inv.LineTotal.Sub(po.LineTotal), po.LineTotal)
	check.ItemTotalWithin1Pct = withinPct(check.ItemTotalVariancePct, 1)
	check.ItemTotalWithin5Pct = withinPct(check.ItemTotalVariancePct, 5)
	check.ItemTotalWithin15Pct = withinPct(check.ItemTotalVariancePct, 15)

	mathTol := decimal.NewFromFloat(tol.MathTolerance)
	invComputed := decimal.NewFromFloat(inv.Quantity).Mul(inv.UnitPrice)
	poComputed := decimal.NewFromFloat(po.Quantity).Mul(po.UnitPrice)
	check.InvoiceMathConsistent = invComputed.Sub(inv.LineTotal).Abs().LessThanOrEqual(mathTol)
	check.POMathConsistent = poComputed.Sub(po.LineTotal).Abs().LessThanOrEqual(mathTol)

	return check
}

// CheckTotals validates the invoice totals against the PO total and against
// the invoice's own arithmetic.
func CheckTotals(totals entity.Totals, poTotal decimal.Decimal, tol Tolerances) TotalVarianceResult {
	variance := totals.TotalDue.Sub(poTotal).Abs().Round(2)
	pct := variancePercent(variance, poTotal)

	valid := variance.LessThanOrEqual(decimal.NewFromFloat(tol.MaxTotalVariance))
	if !valid && pct != nil && math.Abs(*pct) <= tol.MaxTotalVariancePercent {
		valid = true
	}

	selfDelta := totals.Subtotal.Add(totals.VATAmount).Sub(totals.TotalDue).Abs()
	mathError := selfDelta.GreaterThan(decimal.NewFromFloat(tol.SelfTotalTolerance))

	return TotalVarianceResult{
		VarianceAmount:     variance,
		VariancePercent:    pct,
		InvoiceTotalValid:  valid,
		MathErrorOnInvoice: mathError,
	}
}

// StructStatus classifies the structural relationship between invoice and PO lines.
type StructStatus string

const (
	StructPerfectMatch    StructStatus = "perfect_match"
	StructPartialDelivery StructStatus = "partial_delivery"
	StructMismatch        StructStatus = "mismatch"
)

// HeaderReport compares invoice header fields against the matched PO.
type HeaderReport struct {
	SupplierSimilarity float64 `json:"supplier_name_similarity"`
	DateVarianceDays   int     `json:"days_difference"`
	CurrencyOK         bool    `json:"currency_ok"`
}

// StructureReport describes line-level coverage of the PO by the invoice.
type StructureReport struct {
	Status           StructStatus `json:"status"`
	DefinitiveSubset bool         `json:"is_definitive_subset"`
	UnmatchedCount   int          `json:"unmatched_count,omitempty"`
	Details          string       `json:"details"`
}

// Report is the full audit of an invoice against its matched PO.
type Report struct {
	Header     HeaderReport        `json:"header"`
	Structure  StructureReport     `json:"structure"`
	Pairing    pairing.Result      `json:"pairing"`
	Items      []ItemCheck         `json:"item_audit"`
	Financials TotalVarianceResult `json:"financials"`

	InvoiceNumber   string          `json:"invoice_number"`
	InvoiceSupplier string          `json:"invoice_supplier"`
	MatchedPONumber string          `json:"po_matched"`
	POSupplier      string          `json:"po_supplier"`
	POTotal         decimal.Decimal `json:"po_total"`
}

// ValidateAgainstPO produces the complete validation report for a matched
// invoice/PO pair. The matched PO is authoritative; this function never
// re-derives the match. Pure with respect to its inputs: identical inputs
// yield identical reports.
func ValidateAgainstPO(inv *entity.Invoice, po *entity.PurchaseOrder, tol Tolerances) Report {
	header := HeaderReport{
		SupplierSimilarity: similarity.Ratio(strings.TrimSpace(inv.SupplierName), strings.TrimSpace(po.Supplier)),
		DateVarianceDays:   similarity.DateVarianceDays(inv.InvoiceDate, po.Date),
		CurrencyOK:         strings.EqualFold(strings.TrimSpace(inv.Currency), tol.ExpectedCurrency),
	}

	pr := pairing.Match(inv.LineItems, po.LineItems, tol.DescriptionThreshold)

	var structure StructureReport
	switch {
	case pr.MatchRatio == 1.0 && len(pr.UnmatchedPOItems) > 0:
		structure = StructureReport{
			Status:           StructPartialDelivery,
			DefinitiveSubset: true,
			Details: fmt.Sprintf("Invoice covers %d items. %d items remain on PO.",
				len(pr.Pairs), len(pr.UnmatchedPOItems)),
		}
	case pr.MatchRatio == 1.0:
		structure = StructureReport{
			Status:           StructPerfectMatch,
			DefinitiveSubset: true,
			Details:          "All invoice items match PO items exactly with no remainders.",
		}
	default:
		structure = StructureReport{
			Status:           StructMismatch,
			DefinitiveSubset: false,
			UnmatchedCount:   len(pr.UnmatchedInvoiceItems),
			Details: fmt.Sprintf("Found %d items on invoice that do not exist on the matched PO.",
				len(pr.UnmatchedInvoiceItems)),
		}
	}

	items := make([]ItemCheck, 0, len(pr.Pairs))
	for _, p := range pr.Pairs {
		items = append(items, CheckItem(p.InvoiceItem, p.POItem, tol))
	}

	return Report{
		Header:          header,
		Structure:       structure,
		Pairing:         pr,
		Items:           items,
		Financials:      CheckTotals(inv.Totals, po.Total, tol),
		InvoiceNumber:   inv.InvoiceNumber,
		InvoiceSupplier: inv.SupplierName,
		MatchedPONumber: po.PONumber,
		POSupplier:      po.Supplier,
		POTotal:         po.Total,
	}
}

// variancePercent returns the signed variance as a percentage of the
// denominator, rounded to two decimals, or nil when the denominator is zero.
func variancePercent(variance, denom decimal.Decimal) *float64 {
	if denom.IsZero() {
		return nil
	}
	pct := variance.Div(denom).InexactFloat64() * 100
	pct = math.Round(pct*100) / 100
	return &pct
}

func withinPct(pct *float64, limit float64) bool {
	return pct != nil && math.Abs(*pct) <= limit
}
