// Package pipeline orchestrates a single invoice audit run through the
// Matching -> Validating -> Terminal state machine. Each run owns a private
// state; runs share nothing but the read-only PO catalog behind the engine.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/apaudit/invoice-auditor/internal/discrepancy"
	"github.com/apaudit/invoice-auditor/internal/entity"
	"github.com/apaudit/invoice-auditor/internal/matching"
	"github.com/apaudit/invoice-auditor/internal/validation"
)

// Stage names a pipeline state.
type Stage string

const (
	StageMatching   Stage = "matching"
	StageValidating Stage = "validating"
	StageTerminal   Stage = "terminal"
)

// State is the per-invoice run context. The discrepancy log is append-only:
// no stage may remove a record raised by an earlier stage.
type State struct {
	RunID         uuid.UUID
	Invoice       *entity.Invoice
	Outcome       matching.Outcome
	Discrepancies []discrepancy.Discrepancy
	LastStage     Stage
	EarlyExit     bool
}

// Resolution is the terminal record an external resolution collaborator
// consumes. Every run reaches one, early exit included.
type Resolution struct {
	RecommendedAction   discrepancy.Action `json:"recommended_action"`
	HumanReviewRequired bool               `json:"human_review_required"`
	Reasoning           string             `json:"reasoning"`
	ExitedAt            Stage              `json:"exited_at"`
}

// Result bundles the final state of one run.
type Result struct {
	RunID         uuid.UUID
	InvoiceNumber string
	Invoice       *entity.Invoice
	Outcome       matching.Outcome
	Validation    *validation.Report
	Discrepancies []discrepancy.Discrepancy
	Resolution    Resolution
	CompletedAt   time.Time
}

// Processor runs audits. Safe for concurrent use: all per-run state lives in
// the State value created inside Process.
type Processor struct {
	engine           *matching.Engine
	classifier       *discrepancy.Classifier
	tol              validation.Tolerances
	maxDiscrepancies int
	logger           *slog.Logger
	now              func() time.Time
}

// NewProcessor wires a processor. A nil logger falls back to slog.Default;
// maxDiscrepancies <= 0 selects the default early-exit threshold of 3.
func NewProcessor(engine *matching.Engine, classifier *discrepancy.Classifier, tol validation.Tolerances, maxDiscrepancies int, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxDiscrepancies <= 0 {
		maxDiscrepancies = 3
	}
	return &Processor{
		engine:           engine,
		classifier:       classifier,
		tol:              tol,
		maxDiscrepancies: maxDiscrepancies,
		logger:           logger,
		now:              time.Now,
	}
}

// Process audits one invoice. Upstream discrepancies raised by the
// document-intelligence collaborator (credit note, currency mismatch) seed
// the log and can trigger an early exit before matching starts. The returned
// error covers run-level faults only; audit findings travel in the result.
func (p *Processor) Process(ctx context.Context, inv *entity.Invoice, upstream []discrepancy.Discrepancy) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := State{
		RunID:         uuid.New(),
		Invoice:       inv,
		Discrepancies: append([]discrepancy.Discrepancy(nil), upstream...),
		LastStage:     StageMatching,
	}
	log := p.logger.With("run_id", state.RunID, "invoice", inv.InvoiceNumber)

	if discrepancy.HasHighSeverityFrom(state.Discrepancies, discrepancy.SourceDocumentIntelligence) {
		log.Warn("pipeline.early_exit", "stage", StageMatching, "reason", "upstream document-level discrepancy")
		return p.terminal(&state, nil,
			"Exited at matching stage: a high-severity document-level discrepancy was raised upstream."), nil
	}

	outcome, matchDiscs := p.engine.Match(inv)
	state.Outcome = outcome
	state.Discrepancies = append(state.Discrepancies, matchDiscs...)

	if outcome.MatchedPO == nil {
		log.Warn("pipeline.early_exit", "stage", StageMatching, "reason", "no confident PO match")
		return p.terminal(&state, nil,
			"Exited at matching stage: no tier produced a confident PO match. "+outcome.Reasoning), nil
	}
	if len(state.Discrepancies) >= p.maxDiscrepancies {
		log.Warn("pipeline.early_exit", "stage", StageMatching, "discrepancies", len(state.Discrepancies))
		return p.terminal(&state, nil, fmt.Sprintf(
			"Exited at matching stage: %d discrepancies accumulated before validation.", len(state.Discrepancies))), nil
	}

	state.LastStage = StageValidating
	rep := validation.ValidateAgainstPO(inv, outcome.MatchedPO, p.tol)
	state.Discrepancies = append(state.Discrepancies, p.classifier.FromValidation(inv, rep)...)

	log.Info("pipeline.validated", "po", outcome.MatchedPO.PONumber,
		"discrepancies", len(state.Discrepancies))

	state.LastStage = StageTerminal
	result := p.buildResult(&state, &rep)
	return result, nil
}

// terminal finalizes an early-exited run. Early exit always escalates: the
// run stopped before the evidence was complete, so no automated approval is
// defensible.
func (p *Processor) terminal(state *State, rep *validation.Report, reasoning string) *Result {
	state.EarlyExit = true
	exitedAt := state.LastStage
	state.LastStage = StageTerminal

	return &Result{
		RunID:         state.RunID,
		InvoiceNumber: state.Invoice.InvoiceNumber,
		Invoice:       state.Invoice,
		Outcome:       state.Outcome,
		Validation:    rep,
		Discrepancies: state.Discrepancies,
		Resolution: Resolution{
			RecommendedAction:   discrepancy.ActionEscalateToHuman,
			HumanReviewRequired: true,
			Reasoning:           reasoning,
			ExitedAt:            exitedAt,
		},
		CompletedAt: p.now(),
	}
}

// buildResult finalizes a run that completed validation. The recommended
// action is the most restrictive action in the discrepancy log.
func (p *Processor) buildResult(state *State, rep *validation.Report) *Result {
	action := discrepancy.WorstAction(state.Discrepancies)

	var reasoning string
	switch {
	case len(state.Discrepancies) == 0:
		reasoning = fmt.Sprintf("Invoice reconciled cleanly against PO %s via %s.",
			state.Outcome.MatchedPO.PONumber, state.Outcome.Method)
	default:
		reasoning = fmt.Sprintf("Invoice matched PO %s via %s with %d discrepancies; worst recommended action is %s.",
			state.Outcome.MatchedPO.PONumber, state.Outcome.Method, len(state.Discrepancies), action)
	}

	return &Result{
		RunID:         state.RunID,
		InvoiceNumber: state.Invoice.InvoiceNumber,
		Invoice:       state.Invoice,
		Outcome:       state.Outcome,
		Validation:    rep,
		Discrepancies: state.Discrepancies,
		Resolution: Resolution{
			RecommendedAction:   action,
			HumanReviewRequired: action == discrepancy.ActionEscalateToHuman,
			Reasoning:           reasoning,
			ExitedAt:            StageTerminal,
		},
		CompletedAt: p.now(),
	}
}
