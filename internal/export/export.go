// Package export отвечает за плоский экспорт пригодных файлов
// с дедупликацией по содержимому.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/artemshloyda/llmprep/internal/catalog"
	"github.com/artemshloyda/llmprep/internal/events"
	"github.com/artemshloyda/llmprep/internal/hashing"
	"github.com/artemshloyda/llmprep/internal/safepath"
)

// Stats содержит итог экспорта.
type Stats struct {
	// Copied - количество скопированных файлов.
	Copied int

	// DuplicatesSkipped - количество пропущенных дубликатов.
	DuplicatesSkipped int
}

// Exporter копирует обработанные файлы в плоскую выходную директорию,
// пропуская байт-идентичные дубликаты.
type Exporter struct {
	sink events.Sink
}

// New создаёт новый Exporter.
func New(sink events.Sink) *Exporter {
	return &Exporter{sink: sink}
}

// Export копирует записи со статусом Converted из staging в outputDir.
//
// Ключ дедупликации - сохранённый хэш записи, а при его отсутствии -
// свежевычисленный. Первое вхождение побеждает: более поздние записи
// с тем же хэшем не копируются независимо от имени. Порядок обхода -
// порядок каталога, поэтому индекс дедупликации детерминирован.
//
// Отдельные проблемы (ненайденный источник, ошибка хэша или копии)
// логируются и не прерывают экспорт; фатальна только невозможность
// создать выходную директорию.
func (e *Exporter) Export(entries []*catalog.Entry, stagingRoot, outputDir string) (Stats, error) {
	var stats Stats

	e.sink.Info(fmt.Sprintf("Экспорт пригодных файлов в: %s", outputDir))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return stats, fmt.Errorf("не удалось создать выходную директорию %s: %w", outputDir, err)
	}

	resolver, err := safepath.NewResolver(stagingRoot)
	if err != nil {
		return stats, fmt.Errorf("не удалось подготовить проверку путей: %w", err)
	}

	// Индекс дедупликации: хэш содержимого -> уже записанный файл.
	seen := make(map[string]string)

	for _, entry := range entries {
		if entry.Status != catalog.StatusConverted {
			continue
		}

		srcPath, err := resolver.Resolve(entry.WorkingRelPath)
		if err != nil {
			e.sink.Warning(fmt.Sprintf(
				"SECURITY: пропуск файла с недопустимым путём: %s (%v)", entry.WorkingRelPath, err))
			continue
		}

		if _, err := os.Stat(srcPath); err != nil {
			e.sink.Warning(fmt.Sprintf("Исходный файл не существует: %s", srcPath))
			continue
		}

		hash := entry.SHA512
		if hash == "" {
			hash, err = hashing.SHA512File(srcPath)
			if err != nil {
				e.sink.Warning(fmt.Sprintf("Не удалось хэшировать %s: %v", srcPath, err))
				continue
			}
		}

		if existing, ok := seen[hash]; ok {
			e.sink.Info(fmt.Sprintf(
				"Пропуск дубликата (хэш %s): %s (уже скопирован как %s)",
				hash[:16], srcPath, existing))
			stats.DuplicatesSkipped++
			continue
		}

		dstPath := filepath.Join(outputDir, e.destinationName(entry, srcPath, outputDir))

		if err := copyFile(srcPath, dstPath); err != nil {
			e.sink.Error(fmt.Sprintf("Не удалось скопировать %s: %v", srcPath, err))
			continue
		}

		seen[hash] = dstPath
		stats.Copied++
	}

	e.sink.Info(fmt.Sprintf(
		"Экспорт завершён: скопировано %d, пропущено дубликатов %d",
		stats.Copied, stats.DuplicatesSkipped))

	return stats, nil
}

// destinationName выбирает имя файла в плоской выходной директории.
// Для сконвертированного артефакта используется его имя как есть;
// иначе - исходное имя, при коллизии с числовым суффиксом перед
// расширением.
func (e *Exporter) destinationName(entry *catalog.Entry, srcPath, outputDir string) string {
	if entry.ConvertedName != "" {
		return entry.ConvertedName
	}

	base := filepath.Base(srcPath)
	finalName := base
	counter := 1

	for exists(filepath.Join(outputDir, finalName)) {
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		if ext == "" {
			finalName = fmt.Sprintf("%s_%d", stem, counter)
		} else {
			finalName = fmt.Sprintf("%s_%d%s", stem, counter, ext)
		}
		counter++
	}

	return finalName
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// copyFile копирует один файл потоково.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("не удалось открыть %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("не удалось создать %s: %w", dst, err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("не удалось скопировать содержимое: %w", err)
	}
	return nil
}

/*
Возможные расширения:
- Жёсткие ссылки вместо копий на одной файловой системе
- Манифест экспорта (хэш -> имя) рядом с выходной директорией
*/
