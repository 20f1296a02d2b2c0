// Package discrepancy defines the closed set of typed discrepancy records and
// the deterministic classifier that produces them. Severity and recommended
// action are computed from raw evidence inside the constructors; they are
// never freely assignable.
package discrepancy

import "time"

// Type tags a discrepancy variant.
type Type string

const (
	TypeLineItemPrice        Type = "line_item_price_variance"
	TypeLineItemQuantity     Type = "line_item_quantity_mismatch"
	TypeSupplierName         Type = "supplier_name_mismatch"
	TypeTotalAmountVariance  Type = "total_amount_variance"
	TypeFinancialArithmetic  Type = "financial_arithmetic_inconsistency"
	TypeUnexpectedItem       Type = "unexpected_line_item"
	TypePOReference          Type = "po_reference_anomaly"
	TypeMultiplePOCandidates Type = "multiple_po_candidates"
	TypePartialDelivery      Type = "partial_delivery"
	TypeCreditNote           Type = "credit_note"
	TypeCurrencyMismatch     Type = "currency_mismatch"
)

// Severity ranks how risky a discrepancy is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Action is the recommended disposition for a discrepancy.
type Action string

const (
	ActionAutoApprove     Action = "auto_approve"
	ActionFlagForReview   Action = "flag_for_review"
	ActionEscalateToHuman Action = "escalate_to_human"
)

// Source identifies which stage detected a discrepancy.
type Source string

const (
	SourceDocumentIntelligence Source = "document_intelligence"
	SourceMatching             Source = "matching"
	SourceValidation           Source = "validation"
)

// Discrepancy is the closed union of detectable inconsistencies. Only types in
// this package implement it; consumers switch exhaustively on the concrete
// type or on Kind().
type Discrepancy interface {
	Kind() Type
	Severity() Severity
	Action() Action
	Details() string
	DetectedBy() Source
	DetectedAt() time.Time

	sealed()
}

// base carries the fields common to every discrepancy. Unexported so records
// stay immutable after construction.
type base struct {
	kind       Type
	severity   Severity
	action     Action
	details    string
	detectedBy Source
	detectedAt time.Time
}

func (b base) Kind() Type            { return b.kind }
func (b base) Severity() Severity    { return b.severity }
func (b base) Action() Action        { return b.action }
func (b base) Details() string       { return b.details }
func (b base) DetectedBy() Source    { return b.detectedBy }
func (b base) DetectedAt() time.Time { return b.detectedAt }
func (base) sealed()                 {}

// Projection is the flat, read-only view of a discrepancy handed to audit and
// reporting sinks.
type Projection struct {
	Type              Type      `json:"type"`
	Severity          Severity  `json:"severity"`
	RecommendedAction Action    `json:"recommended_action"`
	Details           string    `json:"details"`
	DetectedBy        Source    `json:"detected_by"`
	DetectedAt        time.Time `json:"detected_at"`
}

// Project returns the reporting view of a discrepancy.
func Project(d Discrepancy) Projection {
	return Projection{
		Type:              d.Kind(),
		Severity:          d.Severity(),
		RecommendedAction: d.Action(),
		Details:           d.Details(),
		DetectedBy:        d.DetectedBy(),
		DetectedAt:        d.DetectedAt(),
	}
}

// ProjectAll maps a discrepancy log to its reporting view, preserving order.
func ProjectAll(ds []Discrepancy) []Projection {
	out := make([]Projection, 0, len(ds))
	for _, d := range ds {
		out = append(out, Project(d))
	}
	return out
}

var actionRank = map[Action]int{
	ActionAutoApprove:     0,
	ActionFlagForReview:   1,
	ActionEscalateToHuman: 2,
}

// WorstAction returns the most restrictive recommended action in the log.
// An empty log auto-approves.
func WorstAction(ds []Discrepancy) Action {
	worst := ActionAutoApprove
	for _, d := range ds {
		if actionRank[d.Action()] > actionRank[worst] {
			worst = d.Action()
		}
	}
	return worst
}

// HasHighSeverityFrom reports whether the log contains a high-severity
// discrepancy detected by the given source.
func HasHighSeverityFrom(ds []Discrepancy, src Source) bool {
	for _, d := range ds {
		if d.Severity() == SeverityHigh && d.DetectedBy() == src {
			return true
		}
	}
	return false
}
