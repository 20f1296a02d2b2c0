// Package intake ingests structured invoice extractions produced by the
// upstream document-intelligence collaborator: JSON Schema validation, lenient
// numeric normalization, and mapping onto the invoice entity.
package intake

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It gates what the extraction collaborator hands us before we
// attempt to decode it.
func BuildInvoiceJSONSchema() map[string]any {
	lineItem := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"item_id":               map[string]any{"type": "string"},
			"description":           map[string]any{"type": "string", "minLength": 1},
			"quantity":              map[string]any{"type": "number"},
			"unit":                  map[string]any{"type": "string"},
			"unit_price":            moneyProp(),
			"line_total":            moneyProp(),
			"extraction_confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"description", "quantity", "unit_price", "line_total"},
	}

	totals := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"subtotal":   moneyProp(),
			"vat_rate":   map[string]any{"type": "number", "minimum": 0.0},
			"vat_amount": moneyProp(),
			"total_due":  moneyProp(),
		},
		"required": []string{"subtotal", "total_due"},
	}

	billTo := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"company_name": map[string]any{"type": "string"},
			"address":      map[string]any{"type": "string"},
		},
	}

	props := map[string]any{
		"invoice_number":   map[string]any{"type": "string", "minLength": 1},
		"invoice_date":     map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"supplier_name":    map[string]any{"type": "string", "minLength": 1},
		"supplier_address": map[string]any{"type": "string"},
		"supplier_vat":     map[string]any{"type": "string"},
		"po_number":        map[string]any{"type": "string"},
		"payment_terms":    map[string]any{"type": "string"},
		"currency":         map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
		"bill_to":          billTo,
		"line_items":       map[string]any{"type": "array", "minItems": 1, "items": lineItem},
		"totals":           totals,
	}
	required := []string{"invoice_number", "invoice_date", "supplier_name", "currency", "line_items", "totals"}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// moneyProp accepts either a JSON number or a decimal string; extraction
// output is inconsistent about which it emits.
func moneyProp() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "number"},
			map[string]any{"type": "string", "pattern": `^-?\d+(\.\d+)?$`},
		},
	}
}
