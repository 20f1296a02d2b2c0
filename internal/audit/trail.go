// Package audit persists an append-only trail of audit outcomes as JSON
// lines. The trail is the read-only projection human-facing reporting and the
// resolution collaborator consume; nothing in this package ever rewrites a
// line once it is flushed.
package audit

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/apaudit/invoice-auditor/internal/discrepancy"
	"github.com/apaudit/invoice-auditor/internal/pipeline"
)

// Entry is one trail line: the terminal view of a single pipeline run.
type Entry struct {
	RunID             string                   `json:"run_id"`
	InvoiceNumber     string                   `json:"invoice_number"`
	SupplierName      string                   `json:"supplier_name,omitempty"`
	MatchedPONumber   string                   `json:"matched_po_number,omitempty"`
	MatchMethod       string                   `json:"match_method"`
	MatchConfidence   float64                  `json:"match_confidence"`
	RecommendedAction discrepancy.Action       `json:"recommended_action"`
	HumanReview       bool                     `json:"human_review_required"`
	EarlyExit         bool                     `json:"early_exit"`
	Reasoning         string                   `json:"reasoning"`
	Discrepancies     []discrepancy.Projection `json:"discrepancies"`
	CompletedAt       time.Time                `json:"completed_at"`
}

// TrailWriter appends entries to a JSON-lines file. Safe for concurrent use.
type TrailWriter struct {
	mu     sync.Mutex
	f      *os.File
	enc    *json.Encoder
	logger *zap.Logger
}

// NewTrailWriter opens (or creates) the trail file for appending.
func NewTrailWriter(path string, logger *zap.Logger) (*TrailWriter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	logger.Info("opened audit trail", zap.String("path", path))
	return &TrailWriter{f: f, enc: json.NewEncoder(f), logger: logger}, nil
}

// Append writes one pipeline result to the trail.
func (w *TrailWriter) Append(res *pipeline.Result) error {
	entry := FromResult(res)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(entry); err != nil {
		w.logger.Error("failed to append audit trail entry",
			zap.String("invoice", entry.InvoiceNumber), zap.Error(err))
		return err
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *TrailWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// FromResult builds the trail projection of a pipeline result.
func FromResult(res *pipeline.Result) Entry {
	entry := Entry{
		RunID:             res.RunID.String(),
		InvoiceNumber:     res.InvoiceNumber,
		MatchMethod:       string(res.Outcome.Method),
		MatchConfidence:   res.Outcome.Confidence,
		RecommendedAction: res.Resolution.RecommendedAction,
		HumanReview:       res.Resolution.HumanReviewRequired,
		EarlyExit:         res.Resolution.ExitedAt != pipeline.StageTerminal,
		Reasoning:         res.Resolution.Reasoning,
		Discrepancies:     discrepancy.ProjectAll(res.Discrepancies),
		CompletedAt:       res.CompletedAt,
	}
	if res.Invoice != nil {
		entry.SupplierName = res.Invoice.SupplierName
	}
	if res.Outcome.MatchedPO != nil {
		entry.MatchedPONumber = res.Outcome.MatchedPO.PONumber
	}
	return entry
}
