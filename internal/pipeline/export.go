package pipeline

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"attendance/internal"
)

var OutputHeaders = []string{"Nazwisko", "Imię", "Status zaświadczenia", "Czas uczestnictwa"}

// Export writes records to outputPath; an .xlsx extension selects a workbook,
// anything else a comma-separated file. The file appears only once complete.
func Export(records []internal.ClassifiedParticipant, outputPath string) error {
	if strings.EqualFold(filepath.Ext(outputPath), ".xlsx") {
		return ExportXLSX(records, outputPath)
	}
	return ExportCSV(records, outputPath)
}

func ExportCSV(records []internal.ClassifiedParticipant, outputPath string) error {
	return writeAtomic(outputPath, func(w io.Writer) error {
		return WriteCSV(w, records)
	})
}

func WriteCSV(w io.Writer, records []internal.ClassifiedParticipant) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutputHeaders); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(outputRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ExportXLSX(records []internal.ClassifiedParticipant, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range OutputHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, r := range records {
		for col, value := range outputRow(r) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	return writeAtomic(outputPath, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

func outputRow(r internal.ClassifiedParticipant) []string {
	return []string{r.LastName, r.FirstName, string(r.Eligibility), r.Duration}
}

func writeAtomic(outputPath string, write func(io.Writer) error) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, outputPath)
}
