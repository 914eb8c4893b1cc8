// Package journal содержит логику работы с SQLite журналом прогонов.
//
// Журнал - наблюдательный: пайплайн не читает его при обработке,
// записи нужны только для истории и команды stats.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/artemshloyda/llmprep/internal/catalog"
	"github.com/artemshloyda/llmprep/internal/pipeline"
)

// Journal предоставляет методы для работы с базой данных прогонов.
type Journal struct {
	db *sql.DB
}

// Open создаёт новое подключение к SQLite и выполняет миграции.
func Open(dbPath string) (*Journal, error) {
	// Создаём директорию для БД, если не существует
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для БД: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть БД: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}

	// SQLite не поддерживает concurrent writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db}

	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось выполнить миграции: %w", err)
	}

	return j, nil
}

// migrate выполняет все SQL-миграции.
func (j *Journal) migrate() error {
	for i, m := range GetMigrations() {
		if _, err := j.db.Exec(m); err != nil {
			return fmt.Errorf("миграция %d: %w", i+1, err)
		}
	}
	return nil
}

// Close закрывает подключение к БД.
func (j *Journal) Close() error {
	return j.db.Close()
}

// StartRun регистрирует начало прогона и возвращает его идентификатор.
func (j *Journal) StartRun(inputPath string) (string, error) {
	runID := uuid.New().String()
	now := time.Now().Unix()

	_, err := j.db.Exec(
		"INSERT INTO runs (id, input_path, status, started_at) VALUES (?, ?, ?, ?)",
		runID, inputPath, StatusInProgress, now,
	)
	if err != nil {
		return "", fmt.Errorf("не удалось зарегистрировать прогон: %w", err)
	}
	return runID, nil
}

// FinishRunOK помечает прогон как успешно завершённый, сохраняет итоги
// и записывает пофайловый снимок каталога в run_entries.
func (j *Journal) FinishRunOK(runID string, result *pipeline.Result) error {
	var converted, skipped, failed int64
	for _, e := range result.Entries {
		switch e.Status {
		case catalog.StatusConverted:
			converted++
		case catalog.StatusSkipped:
			skipped++
		case catalog.StatusFailed:
			failed++
		}
	}

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	_, err = tx.Exec(`
		UPDATE runs SET status = ?, staging_path = ?, export_path = ?, report_path = ?,
		       total_files = ?, converted = ?, skipped = ?, failed = ?,
		       duplicates_skipped = ?, finished_at = ?
		WHERE id = ?`,
		StatusOK, result.StagingPath, result.ExportPath, result.ReportPath,
		int64(len(result.Entries)), converted, skipped, failed,
		int64(result.ExportStats.DuplicatesSkipped), now, runID,
	)
	if err != nil {
		return fmt.Errorf("не удалось обновить прогон: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_entries (run_id, original_name, original_rel_path,
		                         converted_name, sha512, status, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("не удалось подготовить вставку записей: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range result.Entries {
		if _, err := stmt.Exec(runID, e.OriginalName, e.OriginalRelPath,
			e.ConvertedName, e.SHA512, string(e.Status), e.Reason); err != nil {
			return fmt.Errorf("не удалось записать итог файла %s: %w", e.OriginalName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("не удалось зафиксировать итоги прогона: %w", err)
	}
	return nil
}

// GetRunEntries возвращает пофайловый снимок прогона в порядке записи.
func (j *Journal) GetRunEntries(runID string) ([]RunEntry, error) {
	rows, err := j.db.Query(`
		SELECT run_id, original_name, original_rel_path, converted_name,
		       sha512, status, reason
		FROM run_entries WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать записи прогона %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		if err := rows.Scan(&e.RunID, &e.OriginalName, &e.OriginalRelPath,
			&e.ConvertedName, &e.SHA512, &e.Status, &e.Reason); err != nil {
			return nil, fmt.Errorf("не удалось разобрать запись прогона: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения записей прогона: %w", err)
	}
	return entries, nil
}

// FinishRunFailed помечает прогон как завершённый с ошибкой.
func (j *Journal) FinishRunFailed(runID, errMsg string) error {
	now := time.Now().Unix()
	_, err := j.db.Exec(
		"UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?",
		StatusFailed, errMsg, now, runID,
	)
	if err != nil {
		return fmt.Errorf("не удалось обновить статус прогона: %w", err)
	}
	return nil
}

// GetRun возвращает прогон по идентификатору.
func (j *Journal) GetRun(runID string) (*Run, error) {
	var (
		run                 Run
		startedAt, finished *int64
	)
	err := j.db.QueryRow(`
		SELECT id, input_path, staging_path, export_path, report_path, status, error,
		       total_files, converted, skipped, failed, duplicates_skipped,
		       started_at, finished_at
		FROM runs WHERE id = ?`, runID).
		Scan(&run.ID, &run.InputPath, &run.StagingPath, &run.ExportPath, &run.ReportPath,
			&run.Status, &run.Error,
			&run.TotalFiles, &run.Converted, &run.Skipped, &run.Failed, &run.DuplicatesSkipped,
			&startedAt, &finished)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать прогон %s: %w", runID, err)
	}

	if startedAt != nil {
		t := time.Unix(*startedAt, 0)
		run.StartedAt = &t
	}
	if finished != nil {
		t := time.Unix(*finished, 0)
		run.FinishedAt = &t
	}
	return &run, nil
}

// GetStats возвращает сводную статистику по всем прогонам.
func (j *Journal) GetStats() (*Stats, error) {
	var stats Stats
	if err := j.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns); err != nil {
		return nil, fmt.Errorf("не удалось прочитать статистику: %w", err)
	}
	_ = j.db.QueryRow("SELECT COUNT(*) FROM runs WHERE status = ?", StatusOK).Scan(&stats.OKRuns)
	_ = j.db.QueryRow("SELECT COUNT(*) FROM runs WHERE status = ?", StatusFailed).Scan(&stats.FailedRuns)
	_ = j.db.QueryRow(`
		SELECT COALESCE(SUM(total_files), 0), COALESCE(SUM(converted), 0),
		       COALESCE(SUM(skipped), 0), COALESCE(SUM(failed), 0)
		FROM runs`).
		Scan(&stats.TotalFiles, &stats.Converted, &stats.Skipped, &stats.Failed)
	return &stats, nil
}

// CleanupInProgress сбрасывает прогоны со статусом in_progress в failed.
// Вызывается при старте для очистки после аварийного завершения.
func (j *Journal) CleanupInProgress() (int64, error) {
	result, err := j.db.Exec(
		"UPDATE runs SET status = ?, error = ? WHERE status = ?",
		StatusFailed, "прервано при предыдущем запуске", StatusInProgress,
	)
	if err != nil {
		return 0, fmt.Errorf("не удалось очистить in_progress: %w", err)
	}
	return result.RowsAffected()
}

/*
Возможные расширения:
- Добавить метод для экспорта статистики в JSON
- Добавить метод для очистки старых записей
*/
