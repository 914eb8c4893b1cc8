// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig представляет структуру конфигурационного файла YAML.
// Все поля опциональны - если не указаны, используются значения по умолчанию.
type FileConfig struct {
	// Input - настройки входных данных.
	Input *InputConfig `yaml:"input,omitempty"`

	// Conversion - настройки конвертации.
	Conversion *ConversionConfig `yaml:"conversion,omitempty"`

	// Processing - настройки обработки.
	Processing *ProcessingConfig `yaml:"processing,omitempty"`

	// Paths - настройки путей.
	Paths *PathsConfig `yaml:"paths,omitempty"`
}

// InputConfig содержит настройки входных данных.
type InputConfig struct {
	// Path - вход оператора: zip-архив или папка.
	Path string `yaml:"path,omitempty"`
}

// ConversionConfig содержит настройки конвертации документов.
type ConversionConfig struct {
	// SofficePath - путь к бинарнику soffice.
	SofficePath string `yaml:"soffice_path,omitempty"`

	// TimeoutMinutes - таймаут одной конвертации в минутах.
	TimeoutMinutes int `yaml:"timeout_minutes,omitempty"`
}

// ProcessingConfig содержит настройки обработки.
type ProcessingConfig struct {
	// Watch - режим слежения за входной папкой.
	Watch bool `yaml:"watch,omitempty"`

	// Verbose - подробный вывод.
	Verbose bool `yaml:"verbose,omitempty"`

	// NoProgress - отключить прогресс-бар.
	NoProgress bool `yaml:"no_progress,omitempty"`
}

// PathsConfig содержит настройки путей.
type PathsConfig struct {
	// Journal - путь к SQLite журналу прогонов.
	Journal string `yaml:"journal,omitempty"`
}

// DefaultConfigPaths возвращает список путей для поиска конфигурационного файла.
// Поиск выполняется в следующем порядке:
// 1. ./llmprep.yaml (текущая директория)
// 2. ./llmprep.yml
// 3. ~/.config/llmprep/config.yaml
// 4. ~/.config/llmprep/config.yml
func DefaultConfigPaths() []string {
	paths := []string{
		"llmprep.yaml",
		"llmprep.yml",
	}

	// Добавляем путь в домашней директории
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "llmprep", "config.yaml"),
			filepath.Join(home, ".config", "llmprep", "config.yml"),
		)
	}

	return paths
}

// LoadFromFile загружает конфигурацию из указанного файла.
// Возвращает nil, nil если файл не существует.
func LoadFromFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML в %s: %w", path, err)
	}

	return &fc, nil
}

// FindAndLoadConfig ищет и загружает конфигурационный файл из стандартных путей.
// Если configPath указан явно, использует только его.
// Возвращает nil, nil если файл не найден.
func FindAndLoadConfig(configPath string) (*FileConfig, string, error) {
	// Если путь указан явно
	if configPath != "" {
		fc, err := LoadFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		if fc == nil {
			return nil, "", fmt.Errorf("файл конфигурации не найден: %s", configPath)
		}
		return fc, configPath, nil
	}

	// Ищем в стандартных путях
	for _, path := range DefaultConfigPaths() {
		fc, err := LoadFromFile(path)
		if err != nil {
			return nil, "", err
		}
		if fc != nil {
			return fc, path, nil
		}
	}

	return nil, "", nil
}

// ApplyToConfig применяет настройки из файла к основной конфигурации.
// CLI флаги имеют приоритет над файлом конфигурации, поэтому
// эта функция должна вызываться до парсинга CLI флагов.
func (fc *FileConfig) ApplyToConfig(cfg *Config) {
	if fc == nil {
		return
	}

	// Input
	if fc.Input != nil && fc.Input.Path != "" {
		cfg.InputPath = fc.Input.Path
	}

	// Conversion
	if fc.Conversion != nil {
		if fc.Conversion.SofficePath != "" {
			cfg.SofficePath = fc.Conversion.SofficePath
		}
		if fc.Conversion.TimeoutMinutes > 0 {
			cfg.ConvertTimeout = time.Duration(fc.Conversion.TimeoutMinutes) * time.Minute
		}
	}

	// Processing
	if fc.Processing != nil {
		if fc.Processing.Watch {
			cfg.Watch = true
		}
		if fc.Processing.Verbose {
			cfg.Verbose = true
		}
		if fc.Processing.NoProgress {
			cfg.NoProgress = true
		}
	}

	// Paths
	if fc.Paths != nil && fc.Paths.Journal != "" {
		cfg.JournalPath = fc.Paths.Journal
	}
}

// GenerateExampleConfig генерирует пример конфигурационного файла.
func GenerateExampleConfig() string {
	return `# llmprep Configuration File
# Все параметры опциональны - если не указаны, используются значения по умолчанию.
# CLI флаги имеют приоритет над этим файлом.

input:
  # Вход: zip-архив или папка с документами
  path: "./inbox"

conversion:
  # Путь к бинарнику soffice (по умолчанию автопоиск)
  soffice_path: ""
  # Таймаут одной конвертации в минутах
  timeout_minutes: 5

processing:
  # Режим слежения за входной папкой
  watch: false
  # Подробный вывод
  verbose: false
  # Отключить прогресс-бар
  no_progress: false

paths:
  # Путь к SQLite журналу прогонов
  journal: ""
`
}

/*
Возможные расширения:
- Добавить поддержку TOML формата
- Добавить команду 'config init' для генерации конфига
- Добавить поддержку переменных окружения в конфиге
*/
