package matching

import (
	"fmt"
	"strings"

	"github.com/apaudit/invoice-auditor/internal/entity"
	"github.com/apaudit/invoice-auditor/internal/pairing"
	"github.com/apaudit/invoice-auditor/internal/similarity"
	"github.com/apaudit/invoice-auditor/internal/validation"
)

// primary attempts the strict exact-PO-reference match. Every check is a hard
// gate: the claimed PO must exist, the supplier and date must line up, every
// invoice line must pair, and every pair must pass the strict tolerances.
func (e *Engine) primary(inv *entity.Invoice) TierResult {
	po := e.lookup.FindByNumber(inv.PONumber)
	if po == nil {
		return TierResult{Reason: "no_direct_po_match"}
	}

	supplierScore := similarity.Ratio(
		strings.TrimSpace(inv.SupplierName),
		strings.TrimSpace(po.Supplier),
	)
	if supplierScore < e.cfg.PrimarySupplierThreshold {
		return TierResult{Reason: "supplier_similarity_below_threshold"}
	}

	if !similarity.WithinDateWindow(inv.InvoiceDate, po.Date, e.cfg.PrimaryDateWindowDays) {
		return TierResult{Reason: "date_window_fail"}
	}

	pr := pairing.Match(inv.LineItems, po.LineItems, e.cfg.PrimaryDescThreshold)
	if len(pr.Pairs) != len(inv.LineItems) {
		return TierResult{Reason: "partial_line_item_match"}
	}

	checks := make([]validation.ItemCheck, 0, len(pr.Pairs))
	for _, p := range pr.Pairs {
		check := validation.CheckItem(p.InvoiceItem, p.POItem, e.tol)
		checks = append(checks, check)

		if !check.QuantityMatch || !check.UnitPriceWithin2Pct || !check.ItemTotalWithin1Pct {
			return TierResult{Reason: "item_level_variance"}
		}
	}

	totalCheck := validation.CheckTotals(inv.Totals, po.Total, e.tol)
	if !totalCheck.InvoiceTotalValid {
		return TierResult{Reason: "total_variance_exceeded"}
	}

	return TierResult{
		Matched: true,
		Candidates: []Candidate{{
			Method:             MethodExactPOReference,
			PO:                 po,
			Confidence:         e.cfg.PrimaryConfidence,
			MatchRatio:         pr.MatchRatio,
			SupplierSimilarity: supplierScore,
			DateVarianceDays:   similarity.DateVarianceDays(inv.InvoiceDate, po.Date),
			Pairing:            pr,
			ItemChecks:         checks,
			TotalCheck:         &totalCheck,
			Reasoning: fmt.Sprintf("PO %s matched by exact reference; all %d line items paired within strict tolerances.",
				po.PONumber, len(pr.Pairs)),
		}},
	}
}
