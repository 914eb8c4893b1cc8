package converter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// conversionNoticeSheet - служебный лист, который не попадает в выгрузку.
const conversionNoticeSheet = "Conversion Notice"

// convertExcelToMarkdown читает xlsx-книгу и записывает её листы
// таблицами Markdown в артефакт "<stem>__converted.md" рядом с исходником.
func (o *Office) convertExcelToMarkdown(path string) (string, error) {
	outPath := filepath.Join(filepath.Dir(path), fileStem(path)+convertedSuffix+".md")

	o.sink.Info(fmt.Sprintf("Конвертация таблицы %s в Markdown", path))

	wb, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("не удалось открыть книгу %s: %w", path, err)
	}
	defer func() { _ = wb.Close() }()

	var lines []string
	lines = append(lines,
		fmt.Sprintf("# Excel File: %s", filepath.Base(path)),
		"",
		fmt.Sprintf("Converted on: %s", time.Now().Format("2006-01-02 15:04:05")),
		"",
	)

	sheets := wb.GetSheetList()
	processed := 0
	for _, sheet := range sheets {
		if sheet == conversionNoticeSheet {
			continue
		}

		rows, err := wb.GetRows(sheet)
		if err != nil {
			o.sink.Error(fmt.Sprintf("Ошибка чтения листа %s: %v", sheet, err))
			lines = append(lines,
				fmt.Sprintf("## Sheet: %s (Error)", sheet),
				"",
				fmt.Sprintf("*Error processing sheet: %v*", err),
				"",
			)
			continue
		}

		lines = appendSheetMarkdown(lines, sheet, rows)
		processed++
	}

	if len(sheets) == 0 {
		o.sink.Warning("Книга не содержит листов")
		lines = append(lines, "*Workbook contains no sheets*")
	}

	if err := os.WriteFile(outPath, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return "", fmt.Errorf("не удалось записать Markdown файл %s: %w", outPath, err)
	}

	o.sink.Info(fmt.Sprintf(
		"Таблица сконвертирована в Markdown: %s (листов: %d)", outPath, processed))

	return outPath, nil
}

// appendSheetMarkdown добавляет один лист таблицей Markdown.
// Первая строка листа используется как заголовок таблицы.
func appendSheetMarkdown(lines []string, sheet string, rows [][]string) []string {
	lines = append(lines, fmt.Sprintf("## Sheet: %s", sheet), "")

	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	if len(rows) == 0 || maxCols == 0 {
		return append(lines, "*Sheet is empty*", "")
	}

	header := padRow(rows[0], maxCols)
	lines = append(lines, "| "+strings.Join(escapeCells(header), " | ")+" |")
	lines = append(lines, "|"+strings.Repeat("---|", maxCols))

	for _, row := range rows[1:] {
		cells := escapeCells(padRow(row, maxCols))
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
	}

	return append(lines, "")
}

// padRow дополняет строку пустыми ячейками до width колонок.
func padRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

// escapeCells экранирует вертикальные черты в ячейках таблицы.
func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", "\\|")
	}
	return out
}
