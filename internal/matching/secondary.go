package matching

import (
	"fmt"
	"math"
	"sort"

	"github.com/apaudit/invoice-auditor/internal/entity"
	"github.com/apaudit/invoice-auditor/internal/pairing"
	"github.com/apaudit/invoice-auditor/internal/similarity"
)

// secondary finds POs by fuzzy supplier similarity, filters by a widened date
// window, and qualifies each on line-item overlap. Confidence scales with the
// match ratio into the 0.60-0.85 band.
func (e *Engine) secondary(inv *entity.Invoice) TierResult {
	potential := e.lookup.FindBySupplier(inv.SupplierName, e.cfg.SecondarySupplierThreshold)

	var candidates []Candidate
	for _, po := range potential {
		if !similarity.WithinDateWindow(inv.InvoiceDate, po.Date, e.cfg.SecondaryDateWindowDays) {
			continue
		}

		pr := pairing.Match(inv.LineItems, po.LineItems, e.cfg.SecondaryDescThreshold)
		if pr.MatchRatio < e.cfg.SecondaryMinMatchRatio {
			continue
		}

		confidence := math.Round((0.60+pr.MatchRatio*0.25)*100) / 100
		candidates = append(candidates, Candidate{
			Method:           MethodSupplierDateProduct,
			PO:               po,
			Confidence:       confidence,
			MatchRatio:       pr.MatchRatio,
			DateVarianceDays: similarity.DateVarianceDays(inv.InvoiceDate, po.Date),
			Pairing:          pr,
			Reasoning: fmt.Sprintf("Candidate PO %s selected due to %d%% item overlap and valid date window.",
				po.PONumber, int(pr.MatchRatio*100)),
		})
	}

	if len(candidates) == 0 {
		return TierResult{Reason: "no_contextual_match_found"}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > e.cfg.MaxCandidates {
		candidates = candidates[:e.cfg.MaxCandidates]
	}

	return TierResult{Matched: true, Candidates: candidates}
}
