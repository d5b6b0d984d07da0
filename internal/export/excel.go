// Package export writes report findings to an Excel artifact, the
// attachment carried by notification mails and the payload of the report
// download endpoint.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kuato/kuato-be/internal/model"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Findings"

var headers = []string{
	"search_query_id", "name", "source_page_url", "flag_url",
	"severity", "status", "element", "ccid", "reason", "flag",
}

// Generator produces Excel files under a configured output directory.
type Generator struct {
	outputDir string
	logger    *slog.Logger
}

// NewGenerator creates a Generator. The output directory is created on
// first use.
func NewGenerator(outputDir string, logger *slog.Logger) *Generator {
	return &Generator{
		outputDir: outputDir,
		logger:    logger,
	}
}

// Export writes the findings of one report to a spreadsheet and returns
// the file path.
func (g *Generator) Export(urls []model.ReportURL, jobID string) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", fmt.Errorf("failed to name findings sheet: %w", err)
	}

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return "", fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return "", fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for row, u := range urls {
		values := []string{
			u.SearchQueryID, u.Name, u.SourcePageURL, u.FlagURL,
			u.Severity, u.Status, u.Element, u.CCID, u.Reason, u.Flag,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return "", fmt.Errorf("failed to build finding cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return "", fmt.Errorf("failed to write finding cell: %w", err)
			}
		}
	}

	fileName := fmt.Sprintf("%s_%s.xlsx", time.Now().UTC().Format("20060102T150405"), jobID)
	fullPath := filepath.Join(g.outputDir, fileName)

	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save export file: %w", err)
	}

	g.logger.Info("Report exported",
		slog.String("job_id", jobID),
		slog.String("path", fullPath),
		slog.Int("findings", len(urls)),
	)

	return fullPath, nil
}
