// Package journal содержит миграции SQLite базы журнала прогонов.
package journal

// migrations содержит SQL-миграции в порядке выполнения.
var migrations = []string{
	// Миграция 1: Создание таблицы runs
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		input_path TEXT NOT NULL,
		staging_path TEXT,
		export_path TEXT,
		report_path TEXT,
		status TEXT NOT NULL,
		error TEXT,
		total_files INTEGER NOT NULL DEFAULT 0,
		converted INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		duplicates_skipped INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER,
		finished_at INTEGER
	);`,

	// Миграция 2: Создание таблицы run_entries - снимок пофайловых
	// итогов прогона, записывается один раз после завершения.
	`CREATE TABLE IF NOT EXISTS run_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		original_name TEXT NOT NULL,
		original_rel_path TEXT NOT NULL,
		converted_name TEXT,
		sha512 TEXT,
		status TEXT NOT NULL,
		reason TEXT
	);`,

	// Миграция 3: Индекс для выборки записей одного прогона
	`CREATE INDEX IF NOT EXISTS ix_run_entries_run ON run_entries (run_id);`,

	// Миграция 4: Индекс для быстрого поиска по статусу
	`CREATE INDEX IF NOT EXISTS ix_runs_status ON runs (status);`,

	// Миграция 5: Индекс для выборки последних прогонов
	`CREATE INDEX IF NOT EXISTS ix_runs_started ON runs (started_at);`,

	// Миграция 6: Таблица метаданных для версионирования схемы
	`CREATE TABLE IF NOT EXISTS schema_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,

	// Миграция 7: Запись версии схемы
	`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', '1');`,
}

// GetMigrations возвращает список SQL-миграций.
func GetMigrations() []string {
	return migrations
}

/*
Возможные расширения:
- Добавить поддержку отката миграций (down migrations)
*/
