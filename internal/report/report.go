// Package report отвечает за запись табличного отчёта о прогоне в xlsx.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/artemshloyda/llmprep/internal/catalog"
	"github.com/artemshloyda/llmprep/internal/events"
)

// headers - колонки отчёта, по одной строке на запись каталога.
var headers = []string{
	"File Name",
	"Converted File Name",
	"SHA512",
	"Processed",
	"Skip Reason",
	"Relative Path",
	"File Type",
	"File Size (Bytes)",
	"File Size (Human)",
	"Last Modified",
	"Created Time",
}

// Writer записывает итоговый отчёт.
type Writer struct {
	sink events.Sink
}

// NewWriter создаёт новый Writer.
func NewWriter(sink events.Sink) *Writer {
	return &Writer{sink: sink}
}

// Write сохраняет отчёт по упорядоченному каталогу в outputPath.
func (w *Writer) Write(entries []*catalog.Entry, outputPath string) error {
	w.sink.Info(fmt.Sprintf("Генерация отчёта: %s", outputPath))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("не удалось создать директорию отчёта: %w", err)
	}

	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	sheet := wb.GetSheetName(0)

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("не удалось вычислить адрес ячейки: %w", err)
		}
		if err := wb.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("не удалось записать заголовок %s: %w", header, err)
		}
	}

	for i, entry := range entries {
		row := i + 2
		values := []interface{}{
			entry.OriginalName,
			entry.ConvertedName,
			entry.SHA512,
			processedFlag(entry.Status),
			entry.Reason,
			entry.OriginalRelPath,
			entry.FileType,
			entry.SizeBytes,
			entry.SizeHuman,
			entry.ModifiedAt,
			entry.CreatedAt,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("не удалось вычислить адрес ячейки: %w", err)
			}
			if err := wb.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("не удалось записать строку %d: %w", row, err)
			}
		}
	}

	// Ширины колонок: хэш и пути заметно шире остальных.
	widths := map[string]float64{
		"A": 30, "B": 30, "C": 64, "F": 40,
	}
	for col := 'A'; col <= 'K'; col++ {
		width := 15.0
		if wd, ok := widths[string(col)]; ok {
			width = wd
		}
		if err := wb.SetColWidth(sheet, string(col), string(col), width); err != nil {
			return fmt.Errorf("не удалось установить ширину колонки: %w", err)
		}
	}

	if err := wb.SaveAs(outputPath); err != nil {
		return fmt.Errorf("не удалось сохранить отчёт %s: %w", outputPath, err)
	}

	w.sink.Info(fmt.Sprintf("Отчёт сформирован: %s (записей: %d)", outputPath, len(entries)))
	return nil
}

// processedFlag переводит статус записи во флаг "Yes"/"No" для отчёта.
func processedFlag(status catalog.Status) string {
	if status == catalog.StatusConverted {
		return "Yes"
	}
	return "No"
}

/*
Возможные расширения:
- Лист со сводной статистикой прогона
- Экспорт отчёта в CSV параллельно с xlsx
*/
