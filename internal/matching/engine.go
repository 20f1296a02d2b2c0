// Package matching implements the three-tier PO matching cascade: exact PO
// reference, supplier+date+product fallback, and product-only fallback, in
// strict priority order.
package matching

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/apaudit/invoice-auditor/internal/discrepancy"
	"github.com/apaudit/invoice-auditor/internal/entity"
	"github.com/apaudit/invoice-auditor/internal/validation"
)

// Engine runs the cascade against a PO catalog.
type Engine struct {
	lookup Lookup
	cfg    Config
	tol    validation.Tolerances
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine builds a cascade engine. A nil logger falls back to slog.Default.
func NewEngine(lookup Lookup, cfg Config, tol validation.Tolerances, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{lookup: lookup, cfg: cfg, tol: tol, logger: logger, now: time.Now}
}

// Match runs the tiers in strict priority order and stops at the first
// success; lower tiers are never consulted once a higher tier succeeds. The
// engine is greedy, not validating: a tier's success is trusted as ground
// truth, and selection only picks the best-confidence candidate inside the
// winning tier. Returns the outcome plus matching-stage discrepancies.
func (e *Engine) Match(inv *entity.Invoice) (Outcome, []discrepancy.Discrepancy) {
	pri := e.primary(inv)
	if pri.Matched {
		e.logger.Info("matching.primary.ok", "invoice", inv.InvoiceNumber, "po", pri.Candidates[0].PO.PONumber)
		return e.selectBest(MethodExactPOReference, pri, true)
	}
	e.logger.Info("matching.primary.fail", "invoice", inv.InvoiceNumber, "reason", pri.Reason)

	sec := e.secondary(inv)
	if sec.Matched {
		e.logger.Info("matching.secondary.ok", "invoice", inv.InvoiceNumber, "candidates", len(sec.Candidates))
		return e.selectBest(MethodSupplierDateProduct, sec, false)
	}
	e.logger.Info("matching.secondary.fail", "invoice", inv.InvoiceNumber, "reason", sec.Reason)

	ter := e.tertiary(inv)
	if ter.Matched {
		e.logger.Info("matching.tertiary.ok", "invoice", inv.InvoiceNumber, "candidates", len(ter.Candidates))
		return e.selectBest(MethodProductOnly, ter, false)
	}
	e.logger.Info("matching.tertiary.fail", "invoice", inv.InvoiceNumber, "reason", ter.Reason)

	reasoning := fmt.Sprintf("No tier produced a confident match (primary: %s; secondary: %s; tertiary: %s).",
		pri.Reason, sec.Reason, ter.Reason)
	noMatch := Outcome{
		Method:    MethodNoConfidentMatch,
		Reasoning: reasoning,
	}
	return noMatch, []discrepancy.Discrepancy{
		discrepancy.NewPOReference(e.now(), "", nil, reasoning),
	}
}

// selectBest picks the best-confidence candidate from a successful tier, demotes
// the rest to alternatives, and raises the matching-stage discrepancies.
func (e *Engine) selectBest(method Method, tier TierResult, primarySucceeded bool) (Outcome, []discrepancy.Discrepancy) {
	selected := tier.Candidates[0]
	at := e.now()

	alternatives := make([]Alternative, 0, len(tier.Candidates)-1)
	for _, c := range tier.Candidates[1:] {
		if c.PO.PONumber == selected.PO.PONumber {
			continue
		}
		alternatives = append(alternatives, Alternative{
			PONumber:   c.PO.PONumber,
			Confidence: c.Confidence,
			Method:     c.Method,
		})
	}

	matched := len(selected.Pairing.Pairs)
	total := len(selected.Pairing.Pairs) + len(selected.Pairing.UnmatchedInvoiceItems)
	ratio := selected.MatchRatio
	supplierOK := selected.SupplierSimilarity >= e.cfg.PrimarySupplierThreshold
	days := selected.DateVarianceDays

	out := Outcome{
		MatchedPO:        selected.PO,
		Method:           method,
		Confidence:       selected.Confidence,
		LineItemsMatched: &matched,
		LineItemsTotal:   &total,
		MatchRatio:       &ratio,
		Selected:         &selected,
		Alternatives:     alternatives,
		Reasoning:        selected.Reasoning,
	}
	switch method {
	case MethodExactPOReference:
		out.SupplierMatch = &supplierOK
		out.DateVarianceDays = &days
	case MethodSupplierDateProduct:
		ok := true // the supplier lookup already filtered on similarity
		out.SupplierMatch = &ok
		out.DateVarianceDays = &days
	}

	var discs []discrepancy.Discrepancy

	if !primarySucceeded {
		conf := selected.Confidence
		discs = append(discs, discrepancy.NewPOReference(at, selected.PO.PONumber, &conf,
			fmt.Sprintf("Invoice lacked a usable PO reference; PO %s identified via %s fallback. %s",
				selected.PO.PONumber, method, selected.Reasoning)))
	}

	if viable := e.closeCandidates(tier.Candidates); len(viable) >= 2 {
		discs = append(discs, discrepancy.NewMultiplePOCandidates(at, viable))
	}

	if selected.MatchRatio == 1.0 && len(selected.Pairing.UnmatchedPOItems) > 0 {
		poItems := len(selected.PO.LineItems)
		discs = append(discs, discrepancy.NewPartialDelivery(at, matched, poItems, true))
	}

	return out, discs
}

// closeCandidates returns every candidate within the configured confidence
// spread of the best one, when that makes the choice ambiguous.
func (e *Engine) closeCandidates(candidates []Candidate) []discrepancy.CandidateRef {
	if len(candidates) < 2 {
		return nil
	}
	best := candidates[0].Confidence
	var refs []discrepancy.CandidateRef
	for _, c := range candidates {
		if best-c.Confidence <= e.cfg.CandidateSpread {
			refs = append(refs, discrepancy.CandidateRef{
				PONumber:   c.PO.PONumber,
				Confidence: c.Confidence,
				Reasoning:  c.Reasoning,
			})
		}
	}
	if len(refs) < 2 {
		return nil
	}
	return refs
}
