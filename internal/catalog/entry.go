// Package catalog содержит модель каталога файлов и сканирование
// рабочей директории.
package catalog

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Status определяет итог обработки файла в пайплайне.
type Status string

const (
	// StatusPending - файл обнаружен, обработка ещё не началась.
	StatusPending Status = "pending"
	// StatusConverted - файл сконвертирован или уже пригоден как есть.
	StatusConverted Status = "converted"
	// StatusSkipped - файл непригоден и неконвертируем, пропущен.
	StatusSkipped Status = "skipped"
	// StatusFailed - обработка файла завершилась ошибкой.
	StatusFailed Status = "failed"
)

// Entry представляет один обнаруженный файл и итог его обработки.
// Создаётся один раз при сканировании; working-поля, хэш и статус
// меняются ровно один раз на шаге обработки.
type Entry struct {
	// OriginalName - имя файла на момент сканирования. Не меняется.
	OriginalName string

	// OriginalRelPath - относительный путь на момент сканирования. Не меняется.
	OriginalRelPath string

	// WorkingName - текущее имя файла (обновляется при конвертации).
	WorkingName string

	// WorkingRelPath - текущий относительный путь.
	WorkingRelPath string

	// FileType - расширение файла без точки.
	FileType string

	// SizeBytes - размер файла в байтах.
	SizeBytes int64

	// SizeHuman - человекочитаемый размер.
	SizeHuman string

	// ModifiedAt - время последней модификации.
	ModifiedAt string

	// CreatedAt - время создания (или модификации, если недоступно).
	CreatedAt string

	// SHA512 - хэш содержимого (пустая строка = не вычислен).
	SHA512 string

	// Status - итог обработки.
	Status Status

	// Reason - причина пропуска или ошибки.
	Reason string

	// ConvertedName - имя сконвертированного артефакта (если есть).
	ConvertedName string
}

// NewEntry создаёт запись каталога со статусом StatusPending.
func NewEntry(name, relPath, fileType string, sizeBytes int64, modifiedAt, createdAt string) *Entry {
	return &Entry{
		OriginalName:    name,
		OriginalRelPath: relPath,
		WorkingName:     name,
		WorkingRelPath:  relPath,
		FileType:        fileType,
		SizeBytes:       sizeBytes,
		SizeHuman:       FormatSize(sizeBytes),
		ModifiedAt:      modifiedAt,
		CreatedAt:       createdAt,
		Status:          StatusPending,
	}
}

// MarkFailed помечает запись как необработанную с причиной reason.
func (e *Entry) MarkFailed(reason string) {
	e.Status = StatusFailed
	e.Reason = reason
}

// MarkSkipped помечает запись как пропущенную с причиной reason.
func (e *Entry) MarkSkipped(reason string) {
	e.Status = StatusSkipped
	e.Reason = reason
}

// sizeUnits - двоичные единицы размера файла.
var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize форматирует размер в двоичных единицах: целое число
// для байтов, два знака после запятой для остальных единиц.
func FormatSize(bytes int64) string {
	size := float64(bytes)
	unit := 0

	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}

	if unit == 0 {
		return fmt.Sprintf("%d %s", bytes, sizeUnits[unit])
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}

// IsSystemArtifact проверяет, является ли имя файла служебным мусором
// операционной системы. Такие файлы не попадают ни в staging, ни в каталог.
func IsSystemArtifact(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(name, "~$") ||
		strings.HasPrefix(name, "._") ||
		strings.HasPrefix(name, ".DS") ||
		lower == "desktop.ini" ||
		lower == "thumbs.db" ||
		name == ".DS_Store"
}

// readableExtensions - расширения, пригодные для LLM без конвертации.
var readableExtensions = map[string]bool{
	"txt":  true,
	"md":   true,
	"pdf":  true,
	"csv":  true,
	"json": true,
	"xml":  true,
	"html": true,
	"htm":  true,
	"log":  true,
	"rtf":  true,
}

// IsReadable проверяет, пригоден ли файл для LLM по расширению.
func IsReadable(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return readableExtensions[ext]
}

/*
Возможные расширения:
- Добавить определение типа по magic bytes, а не только по расширению
- Добавить настраиваемый список readable-расширений
*/
