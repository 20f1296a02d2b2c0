// Package pairing implements greedy 1:1 assignment between invoice line items
// and purchase-order line items.
package pairing

import (
	"math"

	"github.com/apaudit/invoice-auditor/internal/entity"
	"github.com/apaudit/invoice-auditor/internal/similarity"
)

// MatchedBy indicates which comparison key committed a pair.
type MatchedBy string

const (
	MatchedByItemID      MatchedBy = "item_id"
	MatchedByDescription MatchedBy = "description"
)

// Pair is a committed association between one invoice line and one PO line.
type Pair struct {
	InvoiceItem entity.LineItem   `json:"invoice_item"`
	POItem      entity.POLineItem `json:"po_item"`
	MatchScore  float64           `json:"match_score"`
	MatchedBy   MatchedBy         `json:"matched_by"`
}

// Result is the outcome of pairing one invoice against one PO.
// Invariant: len(Pairs) + len(UnmatchedInvoiceItems) == number of invoice items,
// and no PO item key appears in more than one pair.
type Result struct {
	Pairs                 []Pair              `json:"pairs"`
	UnmatchedInvoiceItems []entity.LineItem   `json:"unmatched_invoice_items"`
	UnmatchedPOItems      []entity.POLineItem `json:"unmatched_po_items"`
	MatchRatio            float64             `json:"match_ratio"`
}

// poKey is the structural identity of a PO line used to prevent double
// assignment. Two PO lines with identical id, description, quantity and price
// are interchangeable for pairing purposes.
type poKey struct {
	itemID      string
	description string
	quantity    float64
	unitPrice   string
}

func keyOf(it entity.POLineItem) poKey {
	return poKey{
		itemID:      it.ItemID,
		description: it.Description,
		quantity:    it.Quantity,
		unitPrice:   it.UnitPrice.String(),
	}
}

// Match pairs invoice items to PO items in input order. An exact item_id match
// short-circuits with score 1.0; otherwise the unconsumed PO item with the
// highest description similarity wins, provided its score reaches
// descThreshold. Greedy and non-backtracking: a later invoice item cannot
// reclaim a PO item consumed by an earlier one, even if it would have scored
// higher. MatchRatio is computed against the invoice item count, so a superset
// PO still yields ratio 1.0 while a PO missing items yields ratio < 1.0.
func Match(invoiceItems []entity.LineItem, poItems []entity.POLineItem, descThreshold float64) Result {
	usedKeys := make(map[poKey]struct{})
	var pairs []Pair
	var unmatchedInvoice []entity.LineItem

	for _, inv := range invoiceItems {
		var bestItem *entity.POLineItem
		var bestKey poKey
		bestScore := 0.0
		matchedBy := MatchedByDescription

		for i := range poItems {
			po := poItems[i]
			key := keyOf(po)
			if _, used := usedKeys[key]; used {
				continue
			}

			if inv.ItemID != "" && po.ItemID == inv.ItemID {
				bestItem = &poItems[i]
				bestKey = key
				bestScore = 1.0
				matchedBy = MatchedByItemID
				break
			}

			score := similarity.Ratio(inv.Description, po.Description)
			if score > bestScore {
				bestItem = &poItems[i]
				bestKey = key
				bestScore = score
				matchedBy = MatchedByDescription
			}
		}

		if bestItem != nil && bestScore >= descThreshold {
			pairs = append(pairs, Pair{
				InvoiceItem: inv,
				POItem:      *bestItem,
				MatchScore:  math.Round(bestScore*1000) / 1000,
				MatchedBy:   matchedBy,
			})
			usedKeys[bestKey] = struct{}{}
		} else {
			unmatchedInvoice = append(unmatchedInvoice, inv)
		}
	}

	var unmatchedPO []entity.POLineItem
	for _, po := range poItems {
		if _, used := usedKeys[keyOf(po)]; !used {
			unmatchedPO = append(unmatchedPO, po)
		}
	}

	ratio := 0.0
	if len(invoiceItems) > 0 {
		ratio = float64(len(pairs)) / float64(len(invoiceItems))
	}

	return Result{
		Pairs:                 pairs,
		UnmatchedInvoiceItems: unmatchedInvoice,
		UnmatchedPOItems:      unmatchedPO,
		MatchRatio:            ratio,
	}
}
