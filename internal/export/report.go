// Package export renders human-facing XLSX reports from finished audit runs.
package export

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/apaudit/invoice-auditor/internal/discrepancy"
	"github.com/apaudit/invoice-auditor/internal/pipeline"
)

// Service produces XLSX bytes for audit reports.
type Service struct {
	logger *zap.Logger
}

func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// DiscrepancyReportXLSX returns a workbook with one row per discrepancy
// across the given runs, plus a summary sheet of per-run resolutions.
func (s *Service) DiscrepancyReportXLSX(results []*pipeline.Result) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Discrepancies"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Invoice",
		"Supplier",
		"Matched PO",
		"Type",
		"Severity",
		"Recommended Action",
		"Details",
		"Detected By",
		"Detected At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	var total int
	for _, res := range results {
		supplier := ""
		if res.Invoice != nil {
			supplier = res.Invoice.SupplierName
		}
		matchedPO := ""
		if res.Outcome.MatchedPO != nil {
			matchedPO = res.Outcome.MatchedPO.PONumber
		}

		for _, p := range discrepancy.ProjectAll(res.Discrepancies) {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(1, res.InvoiceNumber)
			write(2, supplier)
			write(3, matchedPO)
			write(4, string(p.Type))
			write(5, string(p.Severity))
			write(6, string(p.RecommendedAction))
			write(7, truncate(p.Details, 140))
			write(8, string(p.DetectedBy))
			write(9, p.DetectedAt.Format("2006-01-02 15:04:05"))
			row++
			total++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "D", "D", 26)
	_ = f.SetColWidth(sheet, "G", "G", 60)

	if err := s.addSummarySheet(f, results); err != nil {
		return nil, err
	}

	// Drop the default sheet so the workbook opens on Discrepancies.
	_ = f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("built discrepancy report",
		zap.Int("runs", len(results)),
		zap.Int("discrepancies", total),
		zap.Duration("took", time.Since(start)))
	return buf.Bytes(), nil
}

func (s *Service) addSummarySheet(f *excelize.File, results []*pipeline.Result) error {
	const sheet = "Runs"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Invoice", "Matched PO", "Method", "Confidence", "Action", "Human Review", "Reasoning"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, res := range results {
		matchedPO := ""
		if res.Outcome.MatchedPO != nil {
			matchedPO = res.Outcome.MatchedPO.PONumber
		}
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, res.InvoiceNumber)
		write(2, matchedPO)
		write(3, string(res.Outcome.Method))
		write(4, res.Outcome.Confidence)
		write(5, string(res.Resolution.RecommendedAction))
		write(6, res.Resolution.HumanReviewRequired)
		write(7, truncate(res.Resolution.Reasoning, 140))
		row++
	}

	_ = f.SetColWidth(sheet, "G", "G", 80)
	return nil
}

// truncate shortens s to at most n runes, never splitting a multi-byte rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
