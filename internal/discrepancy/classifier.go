package discrepancy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/apaudit/invoice-auditor/internal/entity"
	"github.com/apaudit/invoice-auditor/internal/validation"
)

// Classifier turns validator output into typed discrepancy records. It is
// deterministic and side-effect free apart from the injected clock.
type Classifier struct {
	Tolerances validation.Tolerances
	Now        func() time.Time
}

// NewClassifier builds a classifier with the given tolerances and a wall clock.
func NewClassifier(tol validation.Tolerances) *Classifier {
	return &Classifier{Tolerances: tol, Now: time.Now}
}

// FromValidation maps a validation report to its discrepancy records.
// Variances below the configured noise floor never raise a discrepancy.
func (c *Classifier) FromValidation(inv *entity.Invoice, rep validation.Report) []Discrepancy {
	at := c.Now()
	noise := decimal.NewFromFloat(c.Tolerances.NoiseFloor)
	var out []Discrepancy

	if rep.Header.SupplierSimilarity < 0.90 {
		out = append(out, NewSupplierName(at, rep.InvoiceSupplier, rep.POSupplier, rep.Header.SupplierSimilarity))
	}

	for _, item := range rep.Items {
		if !item.QuantityMatch {
			out = append(out, NewLineItemQuantity(at, item.ItemID, item.Description,
				item.InvoiceQuantity, item.POQuantity))
		}
		// A nil variance percent means the PO price is zero; any real
		// absolute variance is then unclassifiable and must escalate.
		priceNoise := item.UnitPriceVariance.Abs().LessThanOrEqual(noise)
		if !item.UnitPriceWithin2Pct && !priceNoise {
			out = append(out, NewLineItemPrice(at, item.ItemID, item.Description,
				item.InvoiceUnitPrice, item.POUnitPrice, item.UnitPriceVariancePct))
		}
	}

	for _, unmatched := range rep.Pairing.UnmatchedInvoiceItems {
		out = append(out, NewUnexpectedItem(at, unmatched.Description, unmatched.Quantity, unmatched.LineTotal))
	}

	fin := rep.Financials
	if !fin.InvoiceTotalValid && fin.VarianceAmount.Abs().GreaterThan(noise) {
		pct := 0.0
		if fin.VariancePercent != nil {
			pct = *fin.VariancePercent
		}
		out = append(out, NewTotalAmountVariance(at, inv.Totals.TotalDue, rep.POTotal, fin.VarianceAmount, pct))
	}

	if fin.MathErrorOnInvoice {
		out = append(out, NewFinancialArithmetic(at, inv.Totals.Subtotal, inv.Totals.VATAmount, inv.Totals.TotalDue))
	}

	return out
}
