// Package converter содержит конвертацию офисных документов в пригодные
// для LLM форматы: PDF через внешний LibreOffice и Markdown для таблиц.
package converter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/artemshloyda/llmprep/internal/events"
)

// convertedSuffix - маркер имени сконвертированного артефакта.
const convertedSuffix = "__converted"

// convertibleExtensions - расширения, которые конвертер умеет обрабатывать.
var convertibleExtensions = map[string]bool{
	"doc":  true,
	"docx": true,
	"ppt":  true,
	"pptx": true,
	"xls":  true,
	"xlsx": true,
	"odt":  true,
	"ods":  true,
	"odp":  true,
}

// Office конвертирует офисные документы через внешний soffice,
// а xlsx-таблицы - в Markdown через библиотеку чтения таблиц.
type Office struct {
	// sofficePath - путь к бинарнику soffice.
	sofficePath string

	sink events.Sink

	// timeout - таймаут на конвертацию одного файла.
	timeout time.Duration
}

// NewOffice создаёт новый Office.
func NewOffice(sofficePath string, sink events.Sink) *Office {
	return &Office{
		sofficePath: sofficePath,
		sink:        sink,
		timeout:     5 * time.Minute, // Таймаут по умолчанию
	}
}

// SetTimeout устанавливает таймаут на конвертацию одного файла.
func (o *Office) SetTimeout(d time.Duration) {
	o.timeout = d
}

// IsConvertible проверяет, умеет ли конвертер обрабатывать файл.
func (o *Office) IsConvertible(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return convertibleExtensions[ext]
}

// Convert конвертирует файл в пригодный формат и возвращает путь
// к артефакту "<stem>__converted.<pdf|md>" рядом с исходным файлом.
// Пустой путь означает, что конвертация не требовалась.
func (o *Office) Convert(path, workspaceRoot string) (string, error) {
	if !o.IsConvertible(path) {
		return "", nil
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	// Таблицы xlsx читаются напрямую и превращаются в Markdown;
	// остальные форматы уходят во внешний LibreOffice.
	if ext == "xlsx" {
		return o.convertExcelToMarkdown(path)
	}

	return o.convertWithSoffice(path)
}

// convertWithSoffice конвертирует документ в PDF через
// "soffice --headless --convert-to pdf --outdir".
func (o *Office) convertWithSoffice(path string) (string, error) {
	outDir := filepath.Dir(path)
	stem := fileStem(path)
	outPath := filepath.Join(outDir, stem+convertedSuffix+".pdf")

	o.sink.Info(fmt.Sprintf("Конвертация %s -> %s", path, outPath))

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, o.sofficePath,
		"--headless", "--convert-to", "pdf", "--outdir", outDir, path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("конвертация LibreOffice не удалась: %s: stdout: %s, stderr: %s",
			err, stdout.String(), stderr.String())
	}

	// LibreOffice именует выход по исходному файлу; переименовываем
	// в каноническое имя артефакта.
	produced := filepath.Join(outDir, stem+".pdf")
	if _, err := os.Stat(produced); err == nil {
		if _, err := os.Stat(outPath); os.IsNotExist(err) {
			if err := os.Rename(produced, outPath); err != nil {
				return "", fmt.Errorf("не удалось переименовать %s -> %s: %w", produced, outPath, err)
			}
		}
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("конвертация завершилась, но выходной файл не найден: %s", outPath)
	}

	o.sink.Info(fmt.Sprintf("Успешно сконвертировано: %s", outPath))
	return outPath, nil
}

// fileStem возвращает имя файла без последнего расширения.
func fileStem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return "converted"
	}
	return stem
}

/*
Возможные расширения:
- Конвертация xls через calc в xlsx с последующим Markdown
- Повторные попытки при временных сбоях soffice
- Пул профилей LibreOffice для изоляции параллельных вызовов
*/
