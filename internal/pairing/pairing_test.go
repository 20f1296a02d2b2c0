package pairing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apaudit/invoice-auditor/internal/entity"
)

func invItem(id, desc string, qty float64, price string) entity.LineItem {
	return entity.LineItem{
		ItemID:      id,
		Description: desc,
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString(price),
		LineTotal:   decimal.RequireFromString(price).Mul(decimal.NewFromFloat(qty)),
	}
}

func poItem(id, desc string, qty float64, price string) entity.POLineItem {
	return entity.POLineItem{
		ItemID:      id,
		Description: desc,
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString(price),
		LineTotal:   decimal.RequireFromString(price).Mul(decimal.NewFromFloat(qty)),
	}
}

func TestMatch_ExactItemIDShortCircuits(t *testing.T) {
	inv := []entity.LineItem{invItem("SKU-1", "completely different words", 2, "10.00")}
	po := []entity.POLineItem{
		poItem("SKU-2", "completely different words", 2, "10.00"),
		poItem("SKU-1", "unrelated description", 2, "10.00"),
	}

	res := Match(inv, po, 0.9)

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "SKU-1", res.Pairs[0].POItem.ItemID)
	assert.Equal(t, MatchedByItemID, res.Pairs[0].MatchedBy)
	assert.Equal(t, 1.0, res.Pairs[0].MatchScore)
}

func TestMatch_DescriptionFallback(t *testing.T) {
	inv := []entity.LineItem{invItem("", "Blue Widget 10mm", 5, "2.50")}
	po := []entity.POLineItem{
		poItem("A", "Red Gasket 40mm", 5, "2.50"),
		poItem("B", "Blue Widget 10mm", 5, "2.50"),
	}

	res := Match(inv, po, 0.7)

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "B", res.Pairs[0].POItem.ItemID)
	assert.Equal(t, MatchedByDescription, res.Pairs[0].MatchedBy)
	assert.Equal(t, 1.0, res.Pairs[0].MatchScore)
	assert.Equal(t, 1.0, res.MatchRatio)
	require.Len(t, res.UnmatchedPOItems, 1)
	assert.Equal(t, "A", res.UnmatchedPOItems[0].ItemID)
}

func TestMatch_PartialInjection(t *testing.T) {
	// Two invoice lines compete for the same single PO line; only one may win.
	inv := []entity.LineItem{
		invItem("", "Blue Widget 10mm", 1, "2.50"),
		invItem("", "Blue Widget 10mm", 1, "2.50"),
	}
	po := []entity.POLineItem{poItem("B", "Blue Widget 10mm", 2, "2.50")}

	res := Match(inv, po, 0.7)

	require.Len(t, res.Pairs, 1)
	require.Len(t, res.UnmatchedInvoiceItems, 1)
	assert.Empty(t, res.UnmatchedPOItems)
	assert.Equal(t, 0.5, res.MatchRatio)
}

func TestMatch_GreedyDoesNotBacktrack(t *testing.T) {
	// The first invoice item consumes the PO line that would have been a
	// better match for the second. Deliberate trade-off: no reassignment.
	inv := []entity.LineItem{
		invItem("", "Blue Widget", 1, "2.50"),
		invItem("", "Blue Widget 10mm", 1, "2.50"),
	}
	po := []entity.POLineItem{poItem("B", "Blue Widget 10mm", 1, "2.50")}

	res := Match(inv, po, 0.7)

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "Blue Widget", res.Pairs[0].InvoiceItem.Description)
	require.Len(t, res.UnmatchedInvoiceItems, 1)
	assert.Equal(t, "Blue Widget 10mm", res.UnmatchedInvoiceItems[0].Description)
}

func TestMatch_BelowThresholdUnmatched(t *testing.T) {
	inv := []entity.LineItem{invItem("", "Industrial Solvent 5L", 1, "30.00")}
	po := []entity.POLineItem{poItem("X", "Paper Clips", 1, "1.00")}

	res := Match(inv, po, 0.7)

	assert.Empty(t, res.Pairs)
	require.Len(t, res.UnmatchedInvoiceItems, 1)
	require.Len(t, res.UnmatchedPOItems, 1)
	assert.Equal(t, 0.0, res.MatchRatio)
}

func TestMatch_EmptyInvoice(t *testing.T) {
	res := Match(nil, []entity.POLineItem{poItem("A", "anything", 1, "1.00")}, 0.7)
	assert.Equal(t, 0.0, res.MatchRatio)
	assert.Empty(t, res.Pairs)
	require.Len(t, res.UnmatchedPOItems, 1)
}

func TestMatch_RatioInvariants(t *testing.T) {
	inv := []entity.LineItem{
		invItem("A", "Blue Widget 10mm", 1, "2.50"),
		invItem("B", "Red Gasket 40mm", 2, "1.20"),
		invItem("", "item nobody ordered", 1, "9.99"),
	}
	po := []entity.POLineItem{
		poItem("A", "Blue Widget 10mm", 1, "2.50"),
		poItem("B", "Red Gasket 40mm", 2, "1.20"),
		poItem("C", "Steel Bracket", 4, "3.75"),
	}

	res := Match(inv, po, 0.7)

	assert.Equal(t, len(inv), len(res.Pairs)+len(res.UnmatchedInvoiceItems))
	assert.GreaterOrEqual(t, res.MatchRatio, 0.0)
	assert.LessOrEqual(t, res.MatchRatio, 1.0)
	assert.Equal(t, res.MatchRatio == 1.0, len(res.UnmatchedInvoiceItems) == 0)

	// No PO key consumed twice.
	seen := map[string]int{}
	for _, p := range res.Pairs {
		seen[p.POItem.ItemID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "po item %s consumed more than once", id)
	}
}
