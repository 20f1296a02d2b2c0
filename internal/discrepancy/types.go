package discrepancy

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// LineItemPrice records a unit-price variance outside the 2% tolerance.
// VariancePercent is nil when the PO unit price is zero.
type LineItemPrice struct {
	base
	ItemID           string
	Description      string
	InvoiceUnitPrice decimal.Decimal
	POUnitPrice      decimal.Decimal
	VariancePercent  *float64
}

// NewLineItemPrice derives severity from the absolute variance percentage:
// >15% high/escalate, >5% medium/flag, otherwise low/flag. A nil percentage
// means the PO side carries no price to compare against, which escalates.
func NewLineItemPrice(at time.Time, itemID, desc string, invPrice, poPrice decimal.Decimal, variancePct *float64) LineItemPrice {
	severity, action := SeverityLow, ActionFlagForReview
	var details string
	if variancePct == nil {
		severity, action = SeverityHigh, ActionEscalateToHuman
		details = fmt.Sprintf("Unit price for %q is %s but the PO price is zero; variance percentage is undefined.",
			desc, invPrice.StringFixed(2))
	} else {
		switch abs := math.Abs(*variancePct); {
		case abs > 15.0:
			severity, action = SeverityHigh, ActionEscalateToHuman
		case abs > 5.0:
			severity, action = SeverityMedium, ActionFlagForReview
		}
		details = fmt.Sprintf("Unit price for %q is %s vs %s on PO (%.2f%% variance).",
			desc, invPrice.StringFixed(2), poPrice.StringFixed(2), *variancePct)
	}
	return LineItemPrice{
		base: base{
			kind:       TypeLineItemPrice,
			severity:   severity,
			action:     action,
			details:    details,
			detectedBy: SourceValidation,
			detectedAt: at,
		},
		ItemID:           itemID,
		Description:      desc,
		InvoiceUnitPrice: invPrice,
		POUnitPrice:      poPrice,
		VariancePercent:  variancePct,
	}
}

// LineItemQuantity records an invoice/PO quantity mismatch.
type LineItemQuantity struct {
	base
	ItemID          string
	Description     string
	InvoiceQuantity float64
	POQuantity      float64
}

// NewLineItemQuantity escalates over-billing (invoice > PO) and flags
// under-billing for review.
func NewLineItemQuantity(at time.Time, itemID, desc string, invQty, poQty float64) LineItemQuantity {
	severity, action := SeverityMedium, ActionFlagForReview
	if invQty-poQty > 0 {
		severity, action = SeverityHigh, ActionEscalateToHuman
	}
	return LineItemQuantity{
		base: base{
			kind:     TypeLineItemQuantity,
			severity: severity,
			action:   action,
			details: fmt.Sprintf("Quantity for %q is %v on invoice vs %v ordered.",
				desc, invQty, poQty),
			detectedBy: SourceValidation,
			detectedAt: at,
		},
		ItemID:          itemID,
		Description:     desc,
		InvoiceQuantity: invQty,
		POQuantity:      poQty,
	}
}

// SupplierName records a supplier-name similarity below 0.90.
type SupplierName struct {
	base
	InvoiceSupplierName string
	POSupplierName      string
	SimilarityScore     float64
}

// NewSupplierName always flags for review; there is no auto-approve path for
// a supplier mismatch.
func NewSupplierName(at time.Time, invName, poName string, score float64) SupplierName {
	return SupplierName{
		base: base{
			kind:     TypeSupplierName,
			severity: SeverityMedium,
			action:   ActionFlagForReview,
			details: fmt.Sprintf("Invoice supplier %q does not match PO supplier %q (similarity %.2f).",
				invName, poName, score),
			detectedBy: SourceValidation,
			detectedAt: at,
		},
		InvoiceSupplierName: invName,
		POSupplierName:      poName,
		SimilarityScore:     score,
	}
}

// TotalAmountVariance records an invoice/PO total disagreement.
type TotalAmountVariance struct {
	base
	InvoiceTotal    decimal.Decimal
	POTotal         decimal.Decimal
	VarianceAmount  decimal.Decimal
	VariancePercent float64
}

// NewTotalAmountVariance: >10% escalates; within 5 GBP or 1% auto-approves;
// otherwise flag for review.
func NewTotalAmountVariance(at time.Time, invTotal, poTotal, variance decimal.Decimal, variancePct float64) TotalAmountVariance {
	var severity Severity
	var action Action
	switch {
	case math.Abs(variancePct) > 10.0:
		severity, action = SeverityHigh, ActionEscalateToHuman
	case variance.Abs().LessThanOrEqual(decimal.NewFromInt(5)) || math.Abs(variancePct) <= 1.0:
		severity, action = SeverityLow, ActionAutoApprove
	default:
		severity, action = SeverityMedium, ActionFlagForReview
	}
	return TotalAmountVariance{
		base: base{
			kind:     TypeTotalAmountVariance,
			severity: severity,
			action:   action,
			details: fmt.Sprintf("Invoice total %s differs from PO total %s by %s (%.2f%%).",
				invTotal.StringFixed(2), poTotal.StringFixed(2), variance.StringFixed(2), variancePct),
			detectedBy: SourceValidation,
			detectedAt: at,
		},
		InvoiceTotal:    invTotal,
		POTotal:         poTotal,
		VarianceAmount:  variance,
		VariancePercent: variancePct,
	}
}

// FinancialArithmetic records an invoice whose own totals do not sum.
type FinancialArithmetic struct {
	base
	InvoiceSubtotal  decimal.Decimal
	InvoiceVATAmount decimal.Decimal
	InvoiceTotalDue  decimal.Decimal
	ExpectedTotal    decimal.Decimal
}

// NewFinancialArithmetic is always high severity and always escalates.
func NewFinancialArithmetic(at time.Time, subtotal, vat, totalDue decimal.Decimal) FinancialArithmetic {
	expected := subtotal.Add(vat)
	return FinancialArithmetic{
		base: base{
			kind:     TypeFinancialArithmetic,
			severity: SeverityHigh,
			action:   ActionEscalateToHuman,
			details: fmt.Sprintf("The invoice totals do not sum correctly: %s + %s = %s, but total due is %s.",
				subtotal.StringFixed(2), vat.StringFixed(2), expected.StringFixed(2), totalDue.StringFixed(2)),
			detectedBy: SourceValidation,
			detectedAt: at,
		},
		InvoiceSubtotal:  subtotal,
		InvoiceVATAmount: vat,
		InvoiceTotalDue:  totalDue,
		ExpectedTotal:    expected,
	}
}

// UnexpectedItem records an invoice line absent from the matched PO.
type UnexpectedItem struct {
	base
	ItemDescription string
	ItemQuantity    float64
	ItemTotal       decimal.Decimal
}

// NewUnexpectedItem is always high severity and always escalates.
func NewUnexpectedItem(at time.Time, desc string, qty float64, total decimal.Decimal) UnexpectedItem {
	return UnexpectedItem{
		base: base{
			kind:     TypeUnexpectedItem,
			severity: SeverityHigh,
			action:   ActionEscalateToHuman,
			details: fmt.Sprintf("Item %q exists on the invoice but was not found on the purchase order.",
				desc),
			detectedBy: SourceValidation,
			detectedAt: at,
		},
		ItemDescription: desc,
		ItemQuantity:    qty,
		ItemTotal:       total,
	}
}

// POReference records that the claimed PO reference was unusable and a PO was
// selected by fallback matching instead (or no PO could be selected at all).
type POReference struct {
	base
	SuggestedPONumber          string
	SuggestedPOMatchConfidence *float64
	Reasoning                  string
}

// NewPOReference derives the action from the fallback confidence: below 0.7
// escalates, 0.7-0.89 flags, 0.9 and above auto-approves. A nil confidence
// (no match at all) escalates.
func NewPOReference(at time.Time, suggestedPO string, confidence *float64, reasoning string) POReference {
	action := ActionEscalateToHuman
	if confidence != nil {
		switch {
		case *confidence < 0.7:
			action = ActionEscalateToHuman
		case *confidence <= 0.89:
			action = ActionFlagForReview
		default:
			action = ActionAutoApprove
		}
	}
	return POReference{
		base: base{
			kind:       TypePOReference,
			severity:   SeverityMedium,
			action:     action,
			details:    reasoning,
			detectedBy: SourceMatching,
			detectedAt: at,
		},
		SuggestedPONumber:          suggestedPO,
		SuggestedPOMatchConfidence: confidence,
		Reasoning:                  reasoning,
	}
}

// CandidateRef is one competing PO hypothesis.
type CandidateRef struct {
	PONumber   string  `json:"suggested_po_number"`
	Confidence float64 `json:"suggested_po_match_confidence"`
	Reasoning  string  `json:"reasoning"`
}

// MultiplePOCandidates records two or more viable candidates too close in
// confidence to distinguish automatically.
type MultiplePOCandidates struct {
	base
	Candidates []CandidateRef
}

// NewMultiplePOCandidates is always medium severity, flagged for review.
func NewMultiplePOCandidates(at time.Time, candidates []CandidateRef) MultiplePOCandidates {
	return MultiplePOCandidates{
		base: base{
			kind:     TypeMultiplePOCandidates,
			severity: SeverityMedium,
			action:   ActionFlagForReview,
			details: fmt.Sprintf("%d PO candidates are within 10 percentage points of confidence; manual disambiguation required.",
				len(candidates)),
			detectedBy: SourceMatching,
			detectedAt: at,
		},
		Candidates: candidates,
	}
}

// PartialDelivery records an invoice that covers only part of its PO.
type PartialDelivery struct {
	base
	MatchedItems     int
	POItemsTotal     int
	DefinitiveSubset bool
}

// NewPartialDelivery auto-approves when the invoice is a definitive subset of
// the PO; otherwise it flags for review.
func NewPartialDelivery(at time.Time, matched, poTotal int, definitiveSubset bool) PartialDelivery {
	action := ActionFlagForReview
	if definitiveSubset {
		action = ActionAutoApprove
	}
	return PartialDelivery{
		base: base{
			kind:     TypePartialDelivery,
			severity: SeverityMedium,
			action:   action,
			details: fmt.Sprintf("Invoice covers %d of %d PO items; %d items remain undelivered.",
				matched, poTotal, poTotal-matched),
			detectedBy: SourceMatching,
			detectedAt: at,
		},
		MatchedItems:     matched,
		POItemsTotal:     poTotal,
		DefinitiveSubset: definitiveSubset,
	}
}

// CreditNote records a document that is a credit note rather than an invoice.
// Raised by the upstream document-intelligence collaborator.
type CreditNote struct {
	base
}

func NewCreditNote(at time.Time, details string) CreditNote {
	return CreditNote{
		base: base{
			kind:       TypeCreditNote,
			severity:   SeverityHigh,
			action:     ActionEscalateToHuman,
			details:    details,
			detectedBy: SourceDocumentIntelligence,
			detectedAt: at,
		},
	}
}

// CurrencyMismatch records a document settled in an unexpected currency.
// Raised by the upstream document-intelligence collaborator.
type CurrencyMismatch struct {
	base
	InvoiceCurrency  string
	ExpectedCurrency string
}

func NewCurrencyMismatch(at time.Time, invoiceCurrency, expectedCurrency string) CurrencyMismatch {
	return CurrencyMismatch{
		base: base{
			kind:     TypeCurrencyMismatch,
			severity: SeverityHigh,
			action:   ActionEscalateToHuman,
			details: fmt.Sprintf("Invoice is settled in %s; audit expects %s.",
				invoiceCurrency, expectedCurrency),
			detectedBy: SourceDocumentIntelligence,
			detectedAt: at,
		},
		InvoiceCurrency:  invoiceCurrency,
		ExpectedCurrency: expectedCurrency,
	}
}
