package matching

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apaudit/invoice-auditor/internal/discrepancy"
	"github.com/apaudit/invoice-auditor/internal/entity"
	"github.com/apaudit/invoice-auditor/internal/validation"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// stubLookup serves a fixed PO pool and counts calls so tests can verify the
// cascade's strict tier priority.
type stubLookup struct {
	pos []*entity.PurchaseOrder

	byNumberCalls   int
	bySupplierCalls int
	byItemCalls     int
}

func (s *stubLookup) FindByNumber(n string) *entity.PurchaseOrder {
	s.byNumberCalls++
	for _, po := range s.pos {
		if po.PONumber == n {
			return po
		}
	}
	return nil
}

func (s *stubLookup) FindBySupplier(string, float64) []*entity.PurchaseOrder {
	s.bySupplierCalls++
	return s.pos
}

func (s *stubLookup) FindByItemDescription([]entity.LineItem, float64) []*entity.PurchaseOrder {
	s.byItemCalls++
	return s.pos
}

func newTestEngine(lookup Lookup) *Engine {
	e := NewEngine(lookup, DefaultConfig(), validation.DefaultTolerances(), nil)
	e.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func widgetInvoice() *entity.Invoice {
	return &entity.Invoice{
		InvoiceNumber: "INV-1",
		InvoiceDate:   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		SupplierName:  "Acme Ltd",
		PONumber:      "PO-100",
		Currency:      "GBP",
		LineItems: []entity.LineItem{
			{ItemID: "A", Description: "Blue Widget 10mm", Quantity: 10, UnitPrice: dec("2.00"), LineTotal: dec("20.00")},
			{ItemID: "B", Description: "Red Gasket 40mm", Quantity: 5, UnitPrice: dec("1.20"), LineTotal: dec("6.00")},
		},
		Totals: entity.Totals{Subtotal: dec("26.00"), VATAmount: dec("0.00"), TotalDue: dec("26.00")},
	}
}

func widgetPO() *entity.PurchaseOrder {
	return &entity.PurchaseOrder{
		PONumber: "PO-100",
		Supplier: "Acme Ltd",
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		LineItems: []entity.POLineItem{
			{ItemID: "A", Description: "Blue Widget 10mm", Quantity: 10, UnitPrice: dec("2.00"), LineTotal: dec("20.00")},
			{ItemID: "B", Description: "Red Gasket 40mm", Quantity: 5, UnitPrice: dec("1.20"), LineTotal: dec("6.00")},
		},
		Total: dec("26.00"),
	}
}

func TestMatch_PrimarySuccessSkipsLowerTiers(t *testing.T) {
	lookup := &stubLookup{pos: []*entity.PurchaseOrder{widgetPO()}}
	engine := newTestEngine(lookup)

	out, discs := engine.Match(widgetInvoice())

	require.NotNil(t, out.MatchedPO)
	assert.Equal(t, MethodExactPOReference, out.Method)
	assert.Equal(t, 0.97, out.Confidence)
	require.NotNil(t, out.SupplierMatch)
	assert.True(t, *out.SupplierMatch)
	require.NotNil(t, out.DateVarianceDays)
	assert.Equal(t, 4, *out.DateVarianceDays)
	assert.Empty(t, discs)

	assert.Equal(t, 1, lookup.byNumberCalls)
	assert.Equal(t, 0, lookup.bySupplierCalls, "secondary must not run after primary success")
	assert.Equal(t, 0, lookup.byItemCalls, "tertiary must not run after primary success")
}

func TestMatch_PrimaryFailsOnPriceVariance(t *testing.T) {
	po := widgetPO()
	po.LineItems[0].UnitPrice = dec("2.20") // 10% over the 2% gate
	po.LineItems[0].LineTotal = dec("22.00")
	po.Total = dec("28.00")
	lookup := &stubLookup{pos: []*entity.PurchaseOrder{po}}
	engine := newTestEngine(lookup)

	res := engine.primary(widgetInvoice())

	assert.False(t, res.Matched)
	assert.Equal(t, "item_level_variance", res.Reason)
}

func TestMatch_PrimaryFailsOnDateWindow(t *testing.T) {
	po := widgetPO()
	po.Date = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	lookup := &stubLookup{pos: []*entity.PurchaseOrder{po}}
	engine := newTestEngine(lookup)

	res := engine.primary(widgetInvoice())

	assert.False(t, res.Matched)
	assert.Equal(t, "date_window_fail", res.Reason)
}

func TestMatch_PartialDeliveryOnPrimary(t *testing.T) {
	po := widgetPO()
	po.LineItems = append(po.LineItems, entity.POLineItem{
		ItemID: "C", Description: "Steel Bracket", Quantity: 1, UnitPrice: dec("4.00"), LineTotal: dec("4.00"),
	})
	po.Total = dec("30.00") // 4.00 over the invoice, inside the 5 GBP tolerance
	lookup := &stubLookup{pos: []*entity.PurchaseOrder{po}}
	engine := newTestEngine(lookup)

	out, discs := engine.Match(widgetInvoice())

	require.NotNil(t, out.MatchedPO)
	require.Len(t, discs, 1)
	pd, ok := discs[0].(discrepancy.PartialDelivery)
	require.True(t, ok, "expected a partial delivery discrepancy, got %T", discs[0])
	assert.True(t, pd.DefinitiveSubset)
	assert.Equal(t, discrepancy.ActionAutoApprove, pd.Action())
	assert.Equal(t, 2, pd.MatchedItems)
	assert.Equal(t, 3, pd.POItemsTotal)
}

func TestMatch_SecondaryFallbackConfidence(t *testing.T) {
	// Five invoice items, four present on the PO: ratio 0.8,
	// confidence 0.60 + 0.8*0.25 = 0.80.
	inv := widgetInvoice()
	inv.PONumber = "PO-MISSING"
	inv.LineItems = []entity.LineItem{
		{Description: "Alpha Valve", Quantity: 1, UnitPrice: dec("1.00"), LineTotal: dec("1.00")},
		{Description: "Beta Pump", Quantity: 1, UnitPrice: dec("1.00"), LineTotal: dec("1.00")},
		{Description: "Gamma Hose", Quantity: 1, UnitPrice: dec("1.00"), LineTotal: dec("1.00")},
		{Description: "Delta Clamp", Quantity: 1, UnitPrice: dec("1.00"), LineTotal: dec("1.00")},
		{Description: "Epsilon Filter", Quantity: 1, UnitPrice: dec("1.00"), LineTotal: dec("1.00")},
	}

	po := &entity.PurchaseOrder{
		PONumber: "PO-200",
		Supplier: "Acme Ltd",
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		LineItems: []entity.POLineItem{
			{Description: "Alpha Valve", Quantity: 1, UnitPrice: dec("1.00"), LineTotal: dec("1.00")},
			{Description: "Beta Pump", Quantity: 1, UnitPrice: dec("1.00"), LineTotal: dec("1.00")},
			{Description: "Gamma Hose", Quantity: 1, UnitPrice: dec("1.00"), LineTotal: dec("1.00")},
			{Description: "Delta Clamp", Quantity: 1, UnitPrice: dec("1.00"), LineTotal: dec("1.00")},
		},
		Total: dec("4.00"),
	}
	lookup := &stubLookup{pos: []*entity.PurchaseOrder{po}}
	engine := newTestEngine(lookup)

	out, discs := engine.Match(inv)

	require.NotNil(t, out.MatchedPO)
	assert.Equal(t, MethodSupplierDateProduct, out.Method)
	assert.Equal(t, 0.80, out.Confidence)
	require.NotNil(t, out.MatchRatio)
	assert.Equal(t, 0.8, *out.MatchRatio)

	var ref *discrepancy.POReference
	for _, d := range discs {
		if r, ok := d.(discrepancy.POReference); ok {
			ref = &r
		}
	}
	require.NotNil(t, ref, "fallback selection must raise a PO reference discrepancy")
	assert.Equal(t, discrepancy.ActionFlagForReview, ref.Action())
	assert.Equal(t, "PO-200", ref.SuggestedPONumber)
}

func TestMatch_MultipleCloseCandidates(t *testing.T) {
	inv := widgetInvoice()
	inv.PONumber = "PO-MISSING"

	po1 := widgetPO()
	po1.PONumber = "PO-201"
	po2 := widgetPO()
	po2.PONumber = "PO-202"
	lookup := &stubLookup{pos: []*entity.PurchaseOrder{po1, po2}}
	engine := newTestEngine(lookup)

	out, discs := engine.Match(inv)

	require.NotNil(t, out.MatchedPO)
	assert.Equal(t, "PO-201", out.MatchedPO.PONumber)
	require.Len(t, out.Alternatives, 1)
	assert.Equal(t, "PO-202", out.Alternatives[0].PONumber)

	var multi *discrepancy.MultiplePOCandidates
	for _, d := range discs {
		if m, ok := d.(discrepancy.MultiplePOCandidates); ok {
			multi = &m
		}
	}
	require.NotNil(t, multi, "close candidates must raise an ambiguity discrepancy")
	assert.Equal(t, discrepancy.ActionFlagForReview, multi.Action())
	assert.Len(t, multi.Candidates, 2)
}

func TestMatch_TertiaryCapsConfidence(t *testing.T) {
	inv := widgetInvoice()
	inv.PONumber = "PO-MISSING"
	inv.SupplierName = "Totally Different Trading Co"

	po := widgetPO()
	po.Supplier = "Acme Ltd"
	// Outside the secondary date window but tertiary ignores dates.
	po.Date = time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	lookup := &stubLookup{pos: []*entity.PurchaseOrder{po}}
	engine := newTestEngine(lookup)

	out, _ := engine.Match(inv)

	require.NotNil(t, out.MatchedPO)
	assert.Equal(t, MethodProductOnly, out.Method)
	assert.Equal(t, 0.69, out.Confidence, "tertiary confidence must cap at 0.69")
	assert.Nil(t, out.SupplierMatch)
	assert.Nil(t, out.DateVarianceDays)
	assert.Equal(t, 1, lookup.byNumberCalls)
	assert.Equal(t, 1, lookup.bySupplierCalls)
	assert.Equal(t, 1, lookup.byItemCalls)
}

func TestMatch_NoConfidentMatch(t *testing.T) {
	inv := widgetInvoice()
	inv.PONumber = "PO-MISSING"
	lookup := &stubLookup{pos: nil}
	engine := newTestEngine(lookup)

	out, discs := engine.Match(inv)

	assert.Nil(t, out.MatchedPO)
	assert.Equal(t, MethodNoConfidentMatch, out.Method)
	assert.Less(t, out.Confidence, 0.50)
	assert.NotEmpty(t, out.Reasoning)

	require.Len(t, discs, 1)
	ref, ok := discs[0].(discrepancy.POReference)
	require.True(t, ok)
	assert.Equal(t, discrepancy.ActionEscalateToHuman, ref.Action())
}
