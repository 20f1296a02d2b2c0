package validation

// Tolerances are the numeric limits applied by the validator and the
// discrepancy classifier. The source system shipped inconsistent literals
// across revisions, so every limit is configuration rather than a constant.
type Tolerances struct {
	// MathTolerance is the allowed absolute difference when checking
	// quantity x unit_price against the stated line total.
	MathTolerance float64 `yaml:"math_tolerance"`

	// SelfTotalTolerance is the allowed absolute difference when checking
	// subtotal + vat against total_due on the invoice itself.
	SelfTotalTolerance float64 `yaml:"self_total_tolerance"`

	// MaxTotalVariance is the absolute invoice-vs-PO total variance (in the
	// invoice currency) below which the total is acceptable.
	MaxTotalVariance float64 `yaml:"max_total_variance"`

	// MaxTotalVariancePercent is the relative variance (percent of PO total)
	// below which the total is acceptable. Either branch passing is enough.
	MaxTotalVariancePercent float64 `yaml:"max_total_variance_percent"`

	// NoiseFloor: any absolute variance below this is rounding noise and
	// never raises a discrepancy, regardless of percentage.
	NoiseFloor float64 `yaml:"noise_floor"`

	// DescriptionThreshold is the pairing threshold used when auditing a
	// matched invoice against its PO.
	DescriptionThreshold float64 `yaml:"description_threshold"`

	// ExpectedCurrency is the only currency the audit core settles in.
	ExpectedCurrency string `yaml:"expected_currency"`
}

// DefaultTolerances returns the production defaults.
func DefaultTolerances() Tolerances {
	return Tolerances{
		MathTolerance:           0.01,
		SelfTotalTolerance:      0.05,
		MaxTotalVariance:        5.0,
		MaxTotalVariancePercent: 1.0,
		NoiseFloor:              0.05,
		DescriptionThreshold:    0.7,
		ExpectedCurrency:        "GBP",
	}
}
