package bill

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Notes de frais"

var exportHeader = []string{"Type", "Nom", "Date", "Montant", "TVA", "%", "Commentaire", "Statut", "Justificatif"}

// WriteXLSX writes bills as a single-sheet workbook, most recent first.
func WriteXLSX(w io.Writer, bills []Bill) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, b := range SortedByDateDesc(bills) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			string(b.Type),
			b.Name,
			b.Date,
			b.Amount,
			b.VAT,
			b.Pct,
			b.Commentary,
			b.Status.Label(),
			b.FileName,
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
