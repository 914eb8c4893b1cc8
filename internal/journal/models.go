// Package journal содержит модели и логику журнала прогонов в SQLite.
package journal

import "time"

// RunStatus определяет итоговый статус прогона.
type RunStatus string

const (
	// StatusInProgress - прогон выполняется.
	StatusInProgress RunStatus = "in_progress"
	// StatusOK - прогон успешно завершён.
	StatusOK RunStatus = "ok"
	// StatusFailed - прогон завершился с ошибкой.
	StatusFailed RunStatus = "failed"
)

// Run представляет один прогон пайплайна.
type Run struct {
	// ID - уникальный идентификатор прогона (uuid).
	ID string `db:"id"`

	// InputPath - вход оператора (архив или папка).
	InputPath string `db:"input_path"`

	// StagingPath - корень staging-дерева.
	StagingPath *string `db:"staging_path"`

	// ExportPath - директория плоского экспорта.
	ExportPath *string `db:"export_path"`

	// ReportPath - путь к файлу отчёта.
	ReportPath *string `db:"report_path"`

	// Status - статус прогона.
	Status RunStatus `db:"status"`

	// Error - сообщение об ошибке (если есть).
	Error *string `db:"error"`

	// TotalFiles - число записей каталога.
	TotalFiles int64 `db:"total_files"`

	// Converted - число пригодных записей.
	Converted int64 `db:"converted"`

	// Skipped - число пропущенных записей.
	Skipped int64 `db:"skipped"`

	// Failed - число записей с ошибкой.
	Failed int64 `db:"failed"`

	// DuplicatesSkipped - число дубликатов, отсечённых при экспорте.
	DuplicatesSkipped int64 `db:"duplicates_skipped"`

	// StartedAt - время начала прогона.
	StartedAt *time.Time `db:"started_at"`

	// FinishedAt - время завершения прогона.
	FinishedAt *time.Time `db:"finished_at"`
}

// RunEntry - пофайловый итог прогона, снимок записи каталога.
type RunEntry struct {
	// RunID - идентификатор прогона.
	RunID string `db:"run_id"`

	// OriginalName - исходное имя файла.
	OriginalName string `db:"original_name"`

	// OriginalRelPath - исходный относительный путь в staging.
	OriginalRelPath string `db:"original_rel_path"`

	// ConvertedName - имя артефакта конвертации (если была).
	ConvertedName string `db:"converted_name"`

	// SHA512 - хэш содержимого.
	SHA512 string `db:"sha512"`

	// Status - итог обработки файла.
	Status string `db:"status"`

	// Reason - причина пропуска или ошибки.
	Reason string `db:"reason"`
}

// Stats содержит сводку журнала по всем прогонам.
type Stats struct {
	TotalRuns  int64
	OKRuns     int64
	FailedRuns int64
	TotalFiles int64
	Converted  int64
	Skipped    int64
	Failed     int64
}

/*
Возможные расширения:
- Добавить длительность стадий для профилирования
*/
