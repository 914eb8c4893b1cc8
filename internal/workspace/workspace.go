// Package workspace отвечает за подготовку staging-директории
// из входа оператора (архив или папка).
package workspace

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/artemshloyda/llmprep/internal/archive"
	"github.com/artemshloyda/llmprep/internal/catalog"
	"github.com/artemshloyda/llmprep/internal/events"
)

// timestampLayout - суффикс имени staging-директории.
const timestampLayout = "20060102_150405"

// Preparer превращает вход оператора в записываемое staging-дерево.
type Preparer struct {
	sink     events.Sink
	expander *archive.Expander

	// now - источник времени для суффиксов имён (подменяется в тестах).
	now func() time.Time
}

// NewPreparer создаёт новый Preparer.
func NewPreparer(sink events.Sink, expander *archive.Expander) *Preparer {
	return &Preparer{
		sink:     sink,
		expander: expander,
		now:      time.Now,
	}
}

// Prepare подготавливает staging-директорию:
//   - zip-файл распаковывается в соседнюю директорию;
//   - папка рекурсивно копируется в соседнюю "<имя>__<timestamp>"
//     без служебных файлов ОС;
//   - любой другой вход возвращается как есть (существование входа
//     проверяет вызывающий).
//
// Исходный вход никогда не модифицируется.
func (p *Preparer) Prepare(inputPath string) (string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return "", fmt.Errorf("не удалось прочитать вход %s: %w", inputPath, err)
	}

	if !info.IsDir() {
		if strings.EqualFold(filepath.Ext(inputPath), ".zip") {
			p.sink.Info(fmt.Sprintf("Вход - ZIP архив, распаковываем: %s", inputPath))
			out, err := p.expander.ExpandZip(inputPath)
			if err != nil {
				return "", fmt.Errorf("не удалось распаковать входной архив %s: %w", inputPath, err)
			}
			return out, nil
		}
		return inputPath, nil
	}

	name := filepath.Base(inputPath)
	staging := filepath.Join(filepath.Dir(inputPath),
		fmt.Sprintf("%s__%s", name, p.now().Format(timestampLayout)))

	p.sink.Info(fmt.Sprintf("Вход - папка, копируем в staging: %s -> %s", inputPath, staging))

	if err := p.copyTree(inputPath, staging); err != nil {
		return "", fmt.Errorf("не удалось скопировать %s в %s: %w", inputPath, staging, err)
	}

	return staging, nil
}

// copyTree рекурсивно копирует дерево src в dst, пропуская служебные
// файлы ОС - они никогда не материализуются в staging.
func (p *Preparer) copyTree(src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("не удалось создать staging-директорию: %w", err)
	}

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("не удалось получить относительный путь для %s: %w", path, err)
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		if catalog.IsSystemArtifact(d.Name()) {
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("не удалось создать директорию для %s: %w", target, err)
		}
		return copyFile(path, target)
	})
	if err != nil {
		return err
	}

	p.sink.Info(fmt.Sprintf("Директория скопирована: %s -> %s", src, dst))
	return nil
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
		return fmt.Errorf("не удалось скопировать %s: %w", src, err)
	}
	return nil
}

/*
Возможные расширения:
- Копирование с сохранением прав и времён файлов
- Поддержка gz как верхнеуровневого входа
*/
