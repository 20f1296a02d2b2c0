package intake

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var reDecimal = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// SanitizeNumericFields normalizes the lenient parts of an extraction payload
// so the stricter schema can still pass: money fields become two-decimal
// strings, the currency code is upper-cased, and nulls are dropped so a
// missing required field fails schema validation instead of decoding to zero.
func SanitizeNumericFields(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	var changed []string

	if v, ok := m["currency"].(string); ok {
		norm := strings.ToUpper(strings.TrimSpace(v))
		if norm != v {
			m["currency"] = norm
			changed = append(changed, "currency")
		}
	}
	if v, ok := m["po_number"].(string); ok {
		m["po_number"] = strings.TrimSpace(v)
	}

	if totals, ok := m["totals"].(map[string]any); ok {
		for _, k := range []string{"subtotal", "vat_amount", "total_due"} {
			if normalizeMoney(totals, k) {
				changed = append(changed, "totals."+k)
			}
		}
	}

	if items, ok := m["line_items"].([]any); ok {
		for i, raw := range items {
			item, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			for _, k := range []string{"unit_price", "line_total"} {
				if normalizeMoney(item, k) {
					changed = append(changed, fmt.Sprintf("line_items[%d].%s", i, k))
				}
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, changed, nil
}

// normalizeMoney rewrites obj[key] as a two-decimal string where it can, and
// drops a null. Reports whether the value changed.
func normalizeMoney(obj map[string]any, key string) bool {
	v, ok := obj[key]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case nil:
		delete(obj, key)
		return true
	case float64:
		obj[key] = strconv.FormatFloat(t, 'f', 2, 64)
		return true
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "£")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" || strings.EqualFold(s, "null") {
			delete(obj, key)
			return true
		}
		if !reDecimal.MatchString(s) {
			return false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			norm := strconv.FormatFloat(f, 'f', 2, 64)
			obj[key] = norm
			return norm != t
		}
		return false
	default:
		return false
	}
}
