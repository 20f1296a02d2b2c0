package matching

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/apaudit/invoice-auditor/internal/validation"
)

// Config carries every threshold the cascade applies. Thresholds are
// configuration, not literals, and can be overridden from a YAML file.
type Config struct {
	// Primary tier: exact PO reference, strict everything.
	PrimarySupplierThreshold float64 `yaml:"primary_supplier_threshold"`
	PrimaryDateWindowDays    int     `yaml:"primary_date_window_days"`
	PrimaryDescThreshold     float64 `yaml:"primary_description_threshold"`
	PrimaryConfidence        float64 `yaml:"primary_confidence"`

	// Secondary tier: supplier + date + product overlap.
	SecondarySupplierThreshold float64 `yaml:"secondary_supplier_threshold"`
	SecondaryDateWindowDays    int     `yaml:"secondary_date_window_days"`
	SecondaryDescThreshold     float64 `yaml:"secondary_description_threshold"`
	SecondaryMinMatchRatio     float64 `yaml:"secondary_min_match_ratio"`

	// Tertiary tier: product descriptions only.
	TertiaryDescThreshold float64 `yaml:"tertiary_description_threshold"`
	TertiaryMinMatchRatio float64 `yaml:"tertiary_min_match_ratio"`

	// MaxCandidates caps how many ranked candidates a fallback tier retains.
	MaxCandidates int `yaml:"max_candidates"`

	// CandidateSpread is the confidence window (in absolute points) within
	// which competing candidates count as ambiguous.
	CandidateSpread float64 `yaml:"candidate_spread"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		PrimarySupplierThreshold: 0.9,
		PrimaryDateWindowDays:    7,
		PrimaryDescThreshold:     0.9,
		PrimaryConfidence:        0.97,

		SecondarySupplierThreshold: 0.7,
		SecondaryDateWindowDays:    14,
		SecondaryDescThreshold:     0.7,
		SecondaryMinMatchRatio:     0.7,

		TertiaryDescThreshold: 0.6,
		TertiaryMinMatchRatio: 0.8,

		MaxCandidates:   3,
		CandidateSpread: 0.10,
	}
}

// FileConfig is the on-disk shape of the tolerance configuration.
type FileConfig struct {
	Matching   Config                `yaml:"matching"`
	Validation validation.Tolerances `yaml:"validation"`
}

// LoadFile reads matching and validation tolerances from a YAML file,
// starting from defaults so a partial file only overrides what it names.
func LoadFile(path string) (FileConfig, error) {
	cfg := FileConfig{
		Matching:   DefaultConfig(),
		Validation: validation.DefaultTolerances(),
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read tolerances file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse tolerances file: %w", err)
	}
	return cfg, nil
}
