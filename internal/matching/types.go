package matching

import (
	"github.com/apaudit/invoice-auditor/internal/entity"
	"github.com/apaudit/invoice-auditor/internal/pairing"
	"github.com/apaudit/invoice-auditor/internal/validation"
)

// Method identifies the tier that produced a match.
type Method string

const (
	MethodExactPOReference    Method = "exact_po_reference"
	MethodSupplierDateProduct Method = "supplier_date_product"
	MethodProductOnly         Method = "product_only"
	MethodNoConfidentMatch    Method = "no_confident_match"
)

// Candidate is one viable PO produced by a tier. Ephemeral: constructed and
// discarded per match attempt.
type Candidate struct {
	Method             Method
	PO                 *entity.PurchaseOrder
	Confidence         float64
	MatchRatio         float64
	SupplierSimilarity float64
	DateVarianceDays   int
	Pairing            pairing.Result
	Reasoning          string

	// Populated by the primary tier only, where item-level validation is part
	// of the success criteria.
	ItemChecks []validation.ItemCheck
	TotalCheck *validation.TotalVarianceResult
}

// TierResult is the outcome of one tier. A failed tier carries a reason; a
// successful one carries ranked candidates (the primary tier carries one).
type TierResult struct {
	Matched    bool
	Reason     string
	Candidates []Candidate
}

// Alternative is a non-selected candidate retained for human review.
type Alternative struct {
	PONumber   string  `json:"po_number"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"match_method"`
}

// Outcome is the cascade's final decision for one invoice.
type Outcome struct {
	MatchedPO  *entity.PurchaseOrder
	Method     Method
	Confidence float64

	SupplierMatch    *bool
	DateVarianceDays *int
	LineItemsMatched *int
	LineItemsTotal   *int
	MatchRatio       *float64

	Selected     *Candidate
	Alternatives []Alternative
	Reasoning    string
}
