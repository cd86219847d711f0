package api

import (
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const (
	exportSheet       = "Items"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportDisposition = `attachment; filename="items.xlsx"`
)

// handleExportItems streams every item as a single-sheet workbook.
func (s *HTTPServer) handleExportItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.items.List(r.Context())
	if err != nil {
		s.writeFailure(w, r, err, 0)
		return
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		s.writeFailure(w, r, err, 0)
		return
	}
	if err := f.SetSheetRow(exportSheet, "A1", &[]any{"ID", "Name", "Description"}); err != nil {
		s.writeFailure(w, r, err, 0)
		return
	}
	for i, item := range items {
		cell := "A" + strconv.Itoa(i+2)
		if err := f.SetSheetRow(exportSheet, cell, &[]any{item.ID, item.Name, item.Description}); err != nil {
			s.writeFailure(w, r, err, 0)
			return
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.writeFailure(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", exportDisposition)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
