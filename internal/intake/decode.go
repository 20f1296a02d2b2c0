package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apaudit/invoice-auditor/internal/common"
	"github.com/apaudit/invoice-auditor/internal/entity"
)

const dateLayout = "2006-01-02"

// rawInvoice mirrors entity.Invoice but keeps the date as the wire string.
type rawInvoice struct {
	InvoiceNumber   string            `json:"invoice_number"`
	InvoiceDate     string            `json:"invoice_date"`
	SupplierName    string            `json:"supplier_name"`
	SupplierAddress string            `json:"supplier_address"`
	SupplierVAT     string            `json:"supplier_vat"`
	PONumber        string            `json:"po_number"`
	PaymentTerms    string            `json:"payment_terms"`
	Currency        string            `json:"currency"`
	BillTo          entity.BillTo     `json:"bill_to"`
	LineItems       []entity.LineItem `json:"line_items"`
	Totals          rawTotals         `json:"totals"`
}

type rawTotals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	VATRate   float64         `json:"vat_rate"`
	VATAmount decimal.Decimal `json:"vat_amount"`
	TotalDue  decimal.Decimal `json:"total_due"`
}

// Decode turns an extraction payload into an invoice entity. The payload is
// sanitized, schema-validated, decoded, and cross-checked; any failure comes
// back wrapped as invalid input so the caller can distinguish a malformed
// document from an engine fault.
func Decode(doc []byte) (*entity.Invoice, error) {
	sanitized, _, err := SanitizeNumericFields(doc)
	if err != nil {
		return nil, common.NewAppError("MALFORMED_INPUT", "invoice payload is not valid JSON",
			errors.Join(common.ErrInvalidInput, err))
	}

	schema, err := invoiceSchemaCompiled()
	if err != nil {
		return nil, common.NewAppError("SCHEMA_ERROR", "compiling invoice schema", err)
	}
	if err := ValidateJSONAgainstSchema(schema, sanitized); err != nil {
		return nil, common.NewAppError("MALFORMED_INPUT", "invoice payload failed schema validation",
			errors.Join(common.ErrInvalidInput, err))
	}

	var raw rawInvoice
	if err := json.Unmarshal(sanitized, &raw); err != nil {
		return nil, common.NewAppError("MALFORMED_INPUT", "decoding invoice payload",
			errors.Join(common.ErrInvalidInput, err))
	}

	v := common.NewValidator()
	v.Field("invoice_number", raw.InvoiceNumber, common.Required)
	v.Field("supplier_name", raw.SupplierName, common.Required)
	v.Field("currency", raw.Currency, common.Required)
	v.Field("invoice_date", raw.InvoiceDate, common.Required, common.ISODate)
	if err := v.Error(); err != nil {
		return nil, err
	}

	date, err := time.Parse(dateLayout, raw.InvoiceDate)
	if err != nil {
		return nil, common.NewAppError("MALFORMED_INPUT",
			fmt.Sprintf("invoice date %q is not a calendar day", raw.InvoiceDate),
			errors.Join(common.ErrInvalidInput, err))
	}

	inv := &entity.Invoice{
		InvoiceNumber:   raw.InvoiceNumber,
		InvoiceDate:     date,
		SupplierName:    raw.SupplierName,
		SupplierAddress: raw.SupplierAddress,
		SupplierVAT:     raw.SupplierVAT,
		PONumber:        raw.PONumber,
		PaymentTerms:    raw.PaymentTerms,
		Currency:        raw.Currency,
		BillTo:          raw.BillTo,
		LineItems:       raw.LineItems,
		Totals: entity.Totals{
			Subtotal:  raw.Totals.Subtotal,
			VATRate:   raw.Totals.VATRate,
			VATAmount: raw.Totals.VATAmount,
			TotalDue:  raw.Totals.TotalDue,
		},
	}
	return inv, nil
}
