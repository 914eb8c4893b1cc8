// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config содержит все настройки для прогона пайплайна.
type Config struct {
	// InputPath - вход оператора: zip-архив или папка.
	InputPath string

	// SofficePath - путь к бинарнику soffice (опционально, по умолчанию автопоиск).
	SofficePath string

	// JournalPath - путь к SQLite журналу прогонов.
	JournalPath string

	// NoJournal - отключить журнал прогонов.
	NoJournal bool

	// ConvertTimeout - таймаут одной конвертации внешним процессом.
	ConvertTimeout time.Duration

	// Watch - режим слежения за входной папкой.
	Watch bool

	// Verbose - подробный вывод.
	Verbose bool

	// NoProgress - отключить прогресс-бар.
	NoProgress bool
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		ConvertTimeout: 5 * time.Minute,
		Verbose:        false,
		NoProgress:     false,
	}
}

// Validate проверяет корректность конфигурации.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("вход не указан (--in)")
	}
	if c.ConvertTimeout <= 0 {
		return fmt.Errorf("таймаут конвертации должен быть положительным, получено: %s", c.ConvertTimeout)
	}

	// Устанавливаем путь к журналу по умолчанию: рядом со входом,
	// в скрытой служебной директории.
	if c.JournalPath == "" {
		c.JournalPath = filepath.Join(filepath.Dir(c.InputPath), ".llmprep", "journal.sqlite")
	}

	return nil
}

/*
Возможные расширения:
- Добавить настраиваемый список пригодных расширений
- Добавить лимит глубины рекурсивной распаковки
*/
