package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/apaudit/invoice-auditor/internal/common"
	"github.com/apaudit/invoice-auditor/internal/entity"
)

const dateLayout = "2006-01-02"

// catalogFile is the on-disk JSON shape. Dates are plain calendar days, so
// they are carried as strings and parsed explicitly.
type catalogFile struct {
	PurchaseOrders []poRecord `json:"purchase_orders"`
}

type poRecord struct {
	PONumber  string              `json:"po_number"`
	Supplier  string              `json:"supplier"`
	Date      string              `json:"date"`
	LineItems []entity.POLineItem `json:"line_items"`
	Total     decimal.Decimal     `json:"total"`
}

// LoadJSON reads a PO catalog from a JSON file. Any malformed record aborts
// the load; a partially loaded catalog would silently misroute matches.
func LoadJSON(path string, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError("CATALOG_READ_ERROR",
			fmt.Sprintf("reading catalog file %s", path), err)
	}

	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, common.NewAppError("MALFORMED_CATALOG",
			fmt.Sprintf("parsing catalog file %s", path),
			errors.Join(common.ErrMalformedCatalog, err))
	}

	pos := make([]*entity.PurchaseOrder, 0, len(file.PurchaseOrders))
	for i, rec := range file.PurchaseOrders {
		if rec.PONumber == "" {
			return nil, common.NewAppError("MALFORMED_CATALOG",
				fmt.Sprintf("catalog record %d has no po_number", i), common.ErrMalformedCatalog)
		}
		date, err := time.Parse(dateLayout, rec.Date)
		if err != nil {
			return nil, common.NewAppError("MALFORMED_CATALOG",
				fmt.Sprintf("catalog record %s has an unparseable date %q", rec.PONumber, rec.Date),
				errors.Join(common.ErrMalformedCatalog, err))
		}
		pos = append(pos, &entity.PurchaseOrder{
			PONumber:  rec.PONumber,
			Supplier:  rec.Supplier,
			Date:      date,
			LineItems: rec.LineItems,
			Total:     rec.Total,
		})
	}

	logger.Info("loaded PO catalog from JSON", zap.String("path", path), zap.Int("purchase_orders", len(pos)))
	return New(pos, logger), nil
}
