package matching

import (
	"fmt"
	"math"
	"sort"

	"github.com/apaudit/invoice-auditor/internal/entity"
	"github.com/apaudit/invoice-auditor/internal/pairing"
)

// tertiary is the product-only fallback: candidate POs are found purely by
// line-item description similarity, ignoring supplier and date. Confidence is
// capped at 0.69 so a product-only match can never outrank a contextual one.
func (e *Engine) tertiary(inv *entity.Invoice) TierResult {
	potential := e.lookup.FindByItemDescription(inv.LineItems, e.cfg.TertiaryDescThreshold)

	var candidates []Candidate
	for _, po := range potential {
		pr := pairing.Match(inv.LineItems, po.LineItems, e.cfg.TertiaryDescThreshold)
		if pr.MatchRatio < e.cfg.TertiaryMinMatchRatio {
			continue
		}

		confidence := math.Min(0.4+pr.MatchRatio*0.3, 0.69)
		confidence = math.Round(confidence*100) / 100
		candidates = append(candidates, Candidate{
			Method:     MethodProductOnly,
			PO:         po,
			Confidence: confidence,
			MatchRatio: pr.MatchRatio,
			Pairing:    pr,
			Reasoning: fmt.Sprintf("Product-only match found for PO %s. Identified %d%% of items based on description similarity.",
				po.PONumber, int(pr.MatchRatio*100)),
		})
	}

	if len(candidates) == 0 {
		return TierResult{Reason: "no_po_candidates_met_product_match_threshold"}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > e.cfg.MaxCandidates {
		candidates = candidates[:e.cfg.MaxCandidates]
	}

	return TierResult{Matched: true, Candidates: candidates}
}
