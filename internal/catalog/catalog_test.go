package catalog

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apaudit/invoice-auditor/internal/common"
	"github.com/apaudit/invoice-auditor/internal/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func samplePOs() []*entity.PurchaseOrder {
	return []*entity.PurchaseOrder{
		{
			PONumber: "PO-100",
			Supplier: "Acme Ltd",
			Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			LineItems: []entity.POLineItem{
				{ItemID: "A", Description: "Blue Widget 10mm", Quantity: 10, UnitPrice: dec("2.00"), LineTotal: dec("20.00")},
			},
			Total: dec("20.00"),
		},
		{
			PONumber: "PO-101",
			Supplier: "Acme Limited",
			Date:     time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			LineItems: []entity.POLineItem{
				{Description: "Red Gasket 40mm", Quantity: 5, UnitPrice: dec("1.20"), LineTotal: dec("6.00")},
			},
			Total: dec("6.00"),
		},
		{
			PONumber: "PO-102",
			Supplier: "Northwind Traders",
			Date:     time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
			LineItems: []entity.POLineItem{
				{Description: "Steel Bracket", Quantity: 2, UnitPrice: dec("4.00"), LineTotal: dec("8.00")},
			},
			Total: dec("8.00"),
		},
	}
}

func TestFindByNumber(t *testing.T) {
	c := New(samplePOs(), nil)

	po := c.FindByNumber("PO-101")
	require.NotNil(t, po)
	assert.Equal(t, "Acme Limited", po.Supplier)

	assert.Nil(t, c.FindByNumber("PO-999"))
	assert.Nil(t, c.FindByNumber(""))
}

func TestFindBySupplier_ExactBeforeFuzzy(t *testing.T) {
	c := New(samplePOs(), nil)

	hits := c.FindBySupplier("Acme Ltd", 0.7)
	require.Len(t, hits, 2)
	assert.Equal(t, "PO-100", hits[0].PONumber, "exact match must rank first")
	assert.Equal(t, "PO-101", hits[1].PONumber)
}

func TestFindBySupplier_ThresholdExcludes(t *testing.T) {
	c := New(samplePOs(), nil)

	hits := c.FindBySupplier("Northwind Traders", 0.7)
	require.Len(t, hits, 1)
	assert.Equal(t, "PO-102", hits[0].PONumber)

	assert.Empty(t, c.FindBySupplier("Completely Unrelated Plc", 0.7))
	assert.Empty(t, c.FindBySupplier("", 0.7))
}

func TestFindByItemDescription_RanksByAggregateScore(t *testing.T) {
	c := New(samplePOs(), nil)

	items := []entity.LineItem{
		{Description: "Blue Widget 10mm", Quantity: 10, UnitPrice: dec("2.00"), LineTotal: dec("20.00")},
	}
	hits := c.FindByItemDescription(items, 0.6)
	require.NotEmpty(t, hits)
	assert.Equal(t, "PO-100", hits[0].PONumber)

	assert.Empty(t, c.FindByItemDescription(nil, 0.6))
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	payload := `{
		"purchase_orders": [
			{
				"po_number": "PO-500",
				"supplier": "Acme Ltd",
				"date": "2024-03-01",
				"line_items": [
					{"item_id": "A", "description": "Blue Widget 10mm", "quantity": 10, "unit_price": "2.00", "line_total": "20.00"}
				],
				"total": "20.00"
			}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	c, err := LoadJSON(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Size())

	po := c.FindByNumber("PO-500")
	require.NotNil(t, po)
	assert.Equal(t, "Acme Ltd", po.Supplier)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), po.Date)
	require.Len(t, po.LineItems, 1)
	assert.True(t, po.LineItems[0].UnitPrice.Equal(dec("2.00")))
}

func TestLoadJSON_MalformedDateFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	payload := `{"purchase_orders": [{"po_number": "PO-1", "supplier": "X", "date": "01/03/2024", "line_items": [], "total": "0"}]}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	_, err := LoadJSON(path, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedCatalog))
}

func TestLoadJSON_MissingFile(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.Error(t, err)
}

func TestLoadSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE purchase_orders (po_number TEXT PRIMARY KEY, supplier TEXT, date TEXT, total TEXT);
		CREATE TABLE po_line_items (po_number TEXT, item_id TEXT, description TEXT, quantity REAL, unit TEXT, unit_price TEXT, line_total TEXT);
		INSERT INTO purchase_orders VALUES ('PO-700', 'Acme Ltd', '2024-03-01', '26.00');
		INSERT INTO po_line_items VALUES ('PO-700', 'A', 'Blue Widget 10mm', 10, 'ea', '2.00', '20.00');
		INSERT INTO po_line_items VALUES ('PO-700', 'B', 'Red Gasket 40mm', 5, 'ea', '1.20', '6.00');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c, err := LoadSQLite(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Size())

	po := c.FindByNumber("PO-700")
	require.NotNil(t, po)
	assert.Equal(t, "Acme Ltd", po.Supplier)
	require.Len(t, po.LineItems, 2)
	assert.Equal(t, "Blue Widget 10mm", po.LineItems[0].Description)
	assert.True(t, po.Total.Equal(dec("26.00")))
}

func TestLoadSQLite_MalformedDateFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE purchase_orders (po_number TEXT PRIMARY KEY, supplier TEXT, date TEXT, total TEXT);
		CREATE TABLE po_line_items (po_number TEXT, item_id TEXT, description TEXT, quantity REAL, unit TEXT, unit_price TEXT, line_total TEXT);
		INSERT INTO purchase_orders VALUES ('PO-1', 'X', 'not-a-date', '0');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = LoadSQLite(path, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedCatalog))
}
