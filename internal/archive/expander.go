// Package archive отвечает за рекурсивную распаковку zip и gzip архивов
// с защитой от path traversal и зацикливания.
package archive

import (
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/artemshloyda/llmprep/internal/events"
	"github.com/artemshloyda/llmprep/internal/safepath"
)

// timestampLayout - суффикс имён директорий и файлов распаковки.
const timestampLayout = "20060102_150405"

// Visited - множество канонических путей уже распакованных архивов.
// Принадлежит вызывающему и передаётся в каждый рекурсивный вызов:
// один Visited на один верхнеуровневый прогон. Архив, попавший в
// множество, в рамках прогона больше не распаковывается - это
// единственный механизм разрыва циклов.
type Visited map[string]struct{}

// NewVisited создаёт пустое множество посещённых архивов.
func NewVisited() Visited {
	return make(Visited)
}

// Contains проверяет, был ли канонический путь уже посещён.
func (v Visited) Contains(path string) bool {
	_, ok := v[path]
	return ok
}

// Add добавляет канонический путь в множество.
func (v Visited) Add(path string) {
	v[path] = struct{}{}
}

// Expander распаковывает архивы.
type Expander struct {
	sink events.Sink

	// now - источник времени для суффиксов имён (подменяется в тестах).
	now func() time.Time
}

// New создаёт новый Expander.
func New(sink events.Sink) *Expander {
	return &Expander{
		sink: sink,
		now:  time.Now,
	}
}

// IsArchive проверяет, распознаётся ли файл как архив по расширению.
func IsArchive(path string) bool {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "zip", "gz":
		return true
	}
	return false
}

// ExpandZip распаковывает zip-архив в соседнюю директорию
// "<stem>__<timestamp>". Имя каждого элемента архива разрешается через
// safepath против этой директории; элементы, выходящие за её пределы,
// логируются и пропускаются - это не ошибка прогона.
func (e *Expander) ExpandZip(zipPath string) (string, error) {
	stem := fileStem(zipPath)
	outDir := filepath.Join(filepath.Dir(zipPath),
		fmt.Sprintf("%s__%s", stem, e.now().Format(timestampLayout)))

	e.sink.Info(fmt.Sprintf("Распаковка ZIP: %s -> %s", zipPath, outDir))

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("не удалось создать директорию распаковки %s: %w", outDir, err)
	}

	resolver, err := safepath.NewResolver(outDir)
	if err != nil {
		return "", fmt.Errorf("не удалось подготовить проверку путей: %w", err)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return "", fmt.Errorf("не удалось прочитать ZIP архив %s: %w", zipPath, err)
	}
	// ErrInsecurePath не фатален: имена элементов всё равно проходят
	// через safepath, небезопасные нейтрализуются или пропускаются.
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		outPath, err := resolver.Resolve(f.Name)
		if err != nil {
			e.sink.Warning(fmt.Sprintf(
				"SECURITY: заблокирован path traversal в элементе архива: %s (%v)", f.Name, err))
			continue
		}

		if strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(outPath, 0755); err != nil {
				return "", fmt.Errorf("не удалось создать директорию из архива %s: %w", f.Name, err)
			}
			continue
		}

		if err := e.extractEntry(f, outPath); err != nil {
			return "", fmt.Errorf("не удалось извлечь %s: %w", f.Name, err)
		}
	}

	e.sink.Info(fmt.Sprintf("ZIP успешно распакован в: %s", outDir))
	return outDir, nil
}

// extractEntry извлекает один файловый элемент архива в outPath.
func (e *Expander) extractEntry(f *zip.File, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("не удалось создать родительскую директорию: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("не удалось открыть элемент архива: %w", err)
	}
	defer func() { _ = rc.Close() }()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("не удалось создать файл: %w", err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("не удалось записать содержимое: %w", err)
	}
	return nil
}

// RecursiveDecompress обходит дерево dir и распаковывает каждый
// найденный архив, который ещё не входит в visited. Распаковка одного
// архива создаёт новое содержимое, которое обходится в свою очередь;
// рекурсия завершается, потому что каждый канонический путь архива
// посещается не более одного раза.
//
// Ошибка распаковки отдельного архива логируется, обход продолжается.
func (e *Expander) RecursiveDecompress(dir string, visited Visited) error {
	var archives []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			e.sink.Warning(fmt.Sprintf("не удалось прочитать %s: %v", path, err))
			return nil
		}
		if !d.IsDir() && IsArchive(path) {
			archives = append(archives, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("не удалось обойти директорию %s: %w", dir, err)
	}

	for _, path := range archives {
		normalized := canonicalOrSelf(path)

		if visited.Contains(normalized) {
			e.sink.Warning(fmt.Sprintf("Пропуск уже обработанного архива: %s", path))
			continue
		}
		visited.Add(normalized)

		if err := e.decompressFile(path, visited); err != nil {
			e.sink.Error(fmt.Sprintf("Не удалось распаковать %s: %v", path, err))
		}
	}

	return nil
}

// decompressFile распаковывает один архив по его расширению.
// Успешно распакованный архив потребляется: файл удаляется из staging,
// чтобы не попасть в каталог - его представляет извлечённое содержимое.
func (e *Expander) decompressFile(path string, visited Visited) error {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "zip":
		outDir, err := e.ExpandZip(path)
		if err != nil {
			return err
		}
		e.consume(path)
		// Свежераспакованная директория может содержать новые архивы.
		return e.RecursiveDecompress(outDir, visited)
	case "gz":
		if err := e.decompressGzip(path, visited); err != nil {
			return err
		}
		e.consume(path)
		return nil
	default:
		e.sink.Warning(fmt.Sprintf("Неподдерживаемый формат архива: %s", path))
		return nil
	}
}

// consume удаляет успешно распакованный архив из staging-дерева.
// Неудача удаления не фатальна: архив останется в каталоге как запись.
func (e *Expander) consume(path string) {
	if err := os.Remove(path); err != nil {
		e.sink.Warning(fmt.Sprintf("Не удалось удалить распакованный архив %s: %v", path, err))
		return
	}
	e.sink.Info(fmt.Sprintf("Архив потреблён распаковкой: %s", path))
}

// decompressGzip распаковывает одиночный gzip-поток в соседний файл
// "<stem>__<timestamp>" без неявного расширения. Если результат сам
// является архивом, он немедленно передаётся на распаковку под защитой
// visited.
func (e *Expander) decompressGzip(gzPath string, visited Visited) error {
	e.sink.Info(fmt.Sprintf("Распаковка GZ: %s", gzPath))

	outPath := filepath.Join(filepath.Dir(gzPath),
		fmt.Sprintf("%s__%s", fileStem(gzPath), e.now().Format(timestampLayout)))

	in, err := os.Open(gzPath)
	if err != nil {
		return fmt.Errorf("не удалось открыть GZ файл: %w", err)
	}
	defer func() { _ = in.Close() }()

	decoder, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("не удалось прочитать GZ поток: %w", err)
	}
	defer func() { _ = decoder.Close() }()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("не удалось создать выходной файл: %w", err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, decoder); err != nil {
		return fmt.Errorf("не удалось распаковать GZ поток: %w", err)
	}

	e.sink.Info(fmt.Sprintf("GZ успешно распакован в: %s", outPath))

	if IsArchive(outPath) {
		normalized := canonicalOrSelf(outPath)
		if !visited.Contains(normalized) {
			visited.Add(normalized)
			return e.decompressFile(outPath, visited)
		}
	}

	return nil
}

// fileStem возвращает имя файла без последнего расширения.
func fileStem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return "extracted"
	}
	return stem
}

// canonicalOrSelf канонизирует путь, а при неудаче возвращает его как есть.
func canonicalOrSelf(path string) string {
	if canonical, err := filepath.EvalSymlinks(path); err == nil {
		return canonical
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

/*
Возможные расширения:
- Поддержка tar и tar.gz как единого контейнера
- Лимит суммарного размера распаковки (защита от zip-бомб)
*/
