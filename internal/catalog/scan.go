package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/artemshloyda/llmprep/internal/events"
)

// timeLayout - формат времён в записях каталога.
const timeLayout = "2006-01-02 15:04:05"

// Builder сканирует staging-директорию в упорядоченный каталог.
type Builder struct {
	sink events.Sink
}

// NewBuilder создаёт новый Builder.
func NewBuilder(sink events.Sink) *Builder {
	return &Builder{sink: sink}
}

// Scan обходит дерево root и строит по одной записи на каждый обычный
// файл, кроме служебных артефактов ОС. Порядок записей - порядок
// обхода директорий; он сохраняется всеми последующими стадиями.
func (b *Builder) Scan(root string) ([]*Entry, error) {
	var entries []*Entry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Нечитаемые элементы не прерывают сканирование.
			b.sink.Warning(fmt.Sprintf("не удалось прочитать %s: %v", path, err))
			return nil
		}

		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if IsSystemArtifact(name) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			b.sink.Warning(fmt.Sprintf("не удалось получить метаданные %s: %v", path, err))
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			relPath = path
		}

		ext := filepath.Ext(name)
		fileType := "unknown"
		if ext != "" {
			fileType = ext[1:]
		}

		modified := info.ModTime().Format(timeLayout)

		entries = append(entries, NewEntry(
			name,
			relPath,
			fileType,
			info.Size(),
			modified,
			createdTime(info, modified),
		))

		if len(entries)%100 == 0 {
			b.sink.Info(fmt.Sprintf("Просканировано файлов: %d", len(entries)))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось просканировать %s: %w", root, err)
	}

	b.sink.Info(fmt.Sprintf("Сканирование завершено: найдено %d файлов", len(entries)))
	return entries, nil
}

// createdTime возвращает время создания файла, а если платформа его
// не предоставляет - время модификации.
func createdTime(info os.FileInfo, modified string) string {
	if t, ok := birthTime(info); ok {
		return t.Format(timeLayout)
	}
	return modified
}

// birthTime пытается извлечь время создания из платформенных метаданных.
// Стандартная библиотека его не экспонирует, поэтому по умолчанию
// времени создания нет.
func birthTime(os.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}

/*
Возможные расширения:
- Платформенные реализации birthTime через build tags (Btime на statx)
- Добавить exclude-паттерны для сканирования
*/
