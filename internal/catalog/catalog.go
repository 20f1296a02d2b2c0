// Package catalog holds the read-only purchase order catalog. The catalog is
// loaded once at startup from a JSON file or a SQLite database and serves
// concurrent lookups without locking.
package catalog

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/apaudit/invoice-auditor/internal/entity"
	"github.com/apaudit/invoice-auditor/internal/similarity"
)

// Catalog is an in-memory PO store satisfying the matching engine's lookup
// interface.
type Catalog struct {
	pos      []*entity.PurchaseOrder
	byNumber map[string]*entity.PurchaseOrder
	logger   *zap.Logger
}

// New indexes the given purchase orders. A nil logger falls back to zap.NewNop.
func New(pos []*entity.PurchaseOrder, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	byNumber := make(map[string]*entity.PurchaseOrder, len(pos))
	for _, po := range pos {
		byNumber[po.PONumber] = po
	}
	logger.Info("indexed PO catalog", zap.Int("purchase_orders", len(pos)))
	return &Catalog{pos: pos, byNumber: byNumber, logger: logger}
}

// Size returns the number of purchase orders in the catalog.
func (c *Catalog) Size() int { return len(c.pos) }

// FindByNumber returns the PO with the exact number, or nil.
func (c *Catalog) FindByNumber(poNumber string) *entity.PurchaseOrder {
	if poNumber == "" {
		return nil
	}
	return c.byNumber[poNumber]
}

// FindBySupplier returns POs whose supplier matches the given name: exact
// (case-insensitive) matches first, then fuzzy matches at or above
// minSimilarity, sorted by similarity descending.
func (c *Catalog) FindBySupplier(name string, minSimilarity float64) []*entity.PurchaseOrder {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	type scored struct {
		po    *entity.PurchaseOrder
		score float64
		exact bool
	}
	var hits []scored
	for _, po := range c.pos {
		if strings.EqualFold(strings.TrimSpace(po.Supplier), name) {
			hits = append(hits, scored{po: po, score: 1.0, exact: true})
			continue
		}
		if score := similarity.Ratio(name, po.Supplier); score >= minSimilarity {
			hits = append(hits, scored{po: po, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].exact != hits[j].exact {
			return hits[i].exact
		}
		return hits[i].score > hits[j].score
	})

	out := make([]*entity.PurchaseOrder, len(hits))
	for i, h := range hits {
		out[i] = h.po
	}
	return out
}

// FindByItemDescription ranks POs by aggregate line-item description
// similarity against the invoice items. For each PO, every invoice item
// greedily consumes its best-scoring remaining PO line above the threshold;
// the PO's score is the mean over all invoice items. POs scoring zero are
// dropped.
func (c *Catalog) FindByItemDescription(items []entity.LineItem, threshold float64) []*entity.PurchaseOrder {
	if len(items) == 0 {
		return nil
	}

	type scored struct {
		po    *entity.PurchaseOrder
		score float64
	}
	var hits []scored
	for _, po := range c.pos {
		score := descriptionScore(items, po.LineItems, threshold)
		if score > 0 {
			hits = append(hits, scored{po: po, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	out := make([]*entity.PurchaseOrder, len(hits))
	for i, h := range hits {
		out[i] = h.po
	}
	return out
}

func descriptionScore(items []entity.LineItem, poItems []entity.POLineItem, threshold float64) float64 {
	consumed := make([]bool, len(poItems))
	var total float64
	for _, item := range items {
		bestIdx := -1
		bestScore := 0.0
		for i, poItem := range poItems {
			if consumed[i] {
				continue
			}
			score := similarity.Ratio(item.Description, poItem.Description)
			if score > threshold && score > bestScore {
				bestIdx, bestScore = i, score
			}
		}
		if bestIdx >= 0 {
			consumed[bestIdx] = true
			total += bestScore
		}
	}
	return total / float64(len(items))
}
