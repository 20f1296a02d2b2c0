package matching

import "github.com/apaudit/invoice-auditor/internal/entity"

// Lookup is the read-only PO catalog interface the cascade depends on.
// Implementations must be safe for concurrent readers.
type Lookup interface {
	// FindByNumber returns the PO with the exact number, or nil.
	FindByNumber(poNumber string) *entity.PurchaseOrder

	// FindBySupplier returns candidate POs for a supplier name, exact matches
	// first, then fuzzy matches at or above minSimilarity, sorted by
	// similarity descending.
	FindBySupplier(name string, minSimilarity float64) []*entity.PurchaseOrder

	// FindByItemDescription returns candidate POs ranked by aggregate
	// line-item description similarity against the given invoice items.
	FindByItemDescription(items []entity.LineItem, threshold float64) []*entity.PurchaseOrder
}
