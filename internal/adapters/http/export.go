package httpadapter

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/avoronin/docmd/internal/core/domain"
)

// tokenExport renders the caller's token ledger as an xlsx workbook, one
// row per converted document.
func (rt *Router) tokenExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	userID := r.URL.Query().Get("user_id")
	records, err := rt.tokensUC.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	workbook, err := buildTokenWorkbook(records)
	if err != nil {
		writeError(w, err)
		return
	}
	defer workbook.Close()

	name := fmt.Sprintf("tokens_%s_%s.xlsx", userID, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := workbook.Write(w); err != nil {
		slog.Error("write token export",
			"request_id", requestIDFromContext(r.Context()),
			"error", err)
	}
}

func buildTokenWorkbook(records []domain.TokenRecord) (*excelize.File, error) {
	workbook := excelize.NewFile()
	const sheet = "Tokens"

	index, err := workbook.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	workbook.SetActiveSheet(index)
	if err := workbook.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{"File", "Tokens", "Updated"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := workbook.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for row, record := range records {
		values := []any{record.FileName, record.TotalTokens, record.UpdatedAt.Format(time.RFC3339)}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("record cell: %w", err)
			}
			if err := workbook.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("write record: %w", err)
			}
		}
	}

	if err := workbook.SetColWidth(sheet, "A", "A", 40); err != nil {
		return nil, fmt.Errorf("size columns: %w", err)
	}
	return workbook, nil
}
