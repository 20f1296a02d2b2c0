package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/apaudit/invoice-auditor/internal/common"
	"github.com/apaudit/invoice-auditor/internal/entity"
)

// LoadSQLite reads a PO catalog from a SQLite database with the schema:
//
//	purchase_orders(po_number, supplier, date, total)
//	po_line_items(po_number, item_id, description, quantity, unit, unit_price, line_total)
//
// Dates are stored as 2006-01-02 strings and money columns as decimal text.
// The whole catalog is read into memory up front; the database is closed
// before returning.
func LoadSQLite(path string, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.NewAppError("CATALOG_READ_ERROR",
			fmt.Sprintf("opening catalog database %s", path), err)
	}
	defer db.Close()

	pos, err := readPurchaseOrders(db)
	if err != nil {
		return nil, err
	}
	if err := readLineItems(db, pos); err != nil {
		return nil, err
	}

	out := make([]*entity.PurchaseOrder, 0, len(pos))
	for _, po := range pos {
		out = append(out, po)
	}

	logger.Info("loaded PO catalog from SQLite", zap.String("path", path), zap.Int("purchase_orders", len(out)))
	return New(out, logger), nil
}

func readPurchaseOrders(db *sql.DB) (map[string]*entity.PurchaseOrder, error) {
	rows, err := db.Query(`SELECT po_number, supplier, date, total FROM purchase_orders ORDER BY po_number`)
	if err != nil {
		return nil, common.NewAppError("CATALOG_READ_ERROR", "querying purchase_orders", err)
	}
	defer rows.Close()

	pos := make(map[string]*entity.PurchaseOrder)
	for rows.Next() {
		var (
			po       entity.PurchaseOrder
			dateStr  string
			totalStr string
		)
		if err := rows.Scan(&po.PONumber, &po.Supplier, &dateStr, &totalStr); err != nil {
			return nil, common.NewAppError("MALFORMED_CATALOG", "scanning purchase_orders row",
				errors.Join(common.ErrMalformedCatalog, err))
		}
		po.Date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, common.NewAppError("MALFORMED_CATALOG",
				fmt.Sprintf("catalog record %s has an unparseable date %q", po.PONumber, dateStr),
				errors.Join(common.ErrMalformedCatalog, err))
		}
		po.Total, err = decimal.NewFromString(totalStr)
		if err != nil {
			return nil, common.NewAppError("MALFORMED_CATALOG",
				fmt.Sprintf("catalog record %s has an unparseable total %q", po.PONumber, totalStr),
				errors.Join(common.ErrMalformedCatalog, err))
		}
		p := po
		pos[p.PONumber] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("CATALOG_READ_ERROR", "iterating purchase_orders", err)
	}
	return pos, nil
}

func readLineItems(db *sql.DB, pos map[string]*entity.PurchaseOrder) error {
	rows, err := db.Query(`SELECT po_number, item_id, description, quantity, unit, unit_price, line_total
		FROM po_line_items ORDER BY po_number, rowid`)
	if err != nil {
		return common.NewAppError("CATALOG_READ_ERROR", "querying po_line_items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			poNumber     string
			item         entity.POLineItem
			unitPriceStr string
			lineTotalStr string
		)
		if err := rows.Scan(&poNumber, &item.ItemID, &item.Description, &item.Quantity,
			&item.Unit, &unitPriceStr, &lineTotalStr); err != nil {
			return common.NewAppError("MALFORMED_CATALOG", "scanning po_line_items row",
				errors.Join(common.ErrMalformedCatalog, err))
		}
		po, ok := pos[poNumber]
		if !ok {
			return common.NewAppError("MALFORMED_CATALOG",
				fmt.Sprintf("line item references unknown PO %s", poNumber), common.ErrMalformedCatalog)
		}
		item.UnitPrice, err = decimal.NewFromString(unitPriceStr)
		if err != nil {
			return common.NewAppError("MALFORMED_CATALOG",
				fmt.Sprintf("PO %s line item has an unparseable unit_price %q", poNumber, unitPriceStr),
				errors.Join(common.ErrMalformedCatalog, err))
		}
		item.LineTotal, err = decimal.NewFromString(lineTotalStr)
		if err != nil {
			return common.NewAppError("MALFORMED_CATALOG",
				fmt.Sprintf("PO %s line item has an unparseable line_total %q", poNumber, lineTotalStr),
				errors.Join(common.ErrMalformedCatalog, err))
		}
		po.LineItems = append(po.LineItems, item)
	}
	if err := rows.Err(); err != nil {
		return common.NewAppError("CATALOG_READ_ERROR", "iterating po_line_items", err)
	}
	return nil
}
