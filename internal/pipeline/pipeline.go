// Package pipeline содержит оркестратор последовательной обработки:
// подготовка staging, рекурсивная распаковка, каталогизация, хэширование
// и конвертация по файлам, дедуплицирующий экспорт и отчёт.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/artemshloyda/llmprep/internal/archive"
	"github.com/artemshloyda/llmprep/internal/catalog"
	"github.com/artemshloyda/llmprep/internal/events"
	"github.com/artemshloyda/llmprep/internal/export"
	"github.com/artemshloyda/llmprep/internal/hashing"
	"github.com/artemshloyda/llmprep/internal/safepath"
	"github.com/artemshloyda/llmprep/internal/workspace"
)

// Stage - стадия пайплайна. Стадии строго последовательны,
// параллелизма нет.
type Stage string

const (
	StagePreparing       Stage = "preparing"
	StageDecompressing   Stage = "decompressing"
	StageCataloging      Stage = "cataloging"
	StageProcessing      Stage = "processing"
	StageExporting       Stage = "exporting"
	StageReportGenerated Stage = "report_generated"
	StageDone            Stage = "done"

	// StageFailed - терминальная стадия: невосстановимая ошибка
	// ввода-вывода уровня стадии. Достижима из любой стадии.
	StageFailed Stage = "failed"
)

// Converter - внешний коллаборатор, преобразующий документ в пригодный
// формат. Его внутренности (включая запуск внешних программ) для ядра
// непрозрачны.
type Converter interface {
	// IsConvertible сообщает, умеет ли конвертер обрабатывать файл.
	IsConvertible(path string) bool

	// Convert преобразует файл и возвращает путь к артефакту.
	// Пустой путь при nil-ошибке означает, что файл уже пригоден
	// и конвертация не потребовалась.
	Convert(path, workspaceRoot string) (string, error)
}

// ReportWriter - внешний коллаборатор, записывающий табличный отчёт.
type ReportWriter interface {
	Write(entries []*catalog.Entry, outputPath string) error
}

// Result - итог успешного прогона.
type Result struct {
	// StagingPath - корень staging-дерева.
	StagingPath string

	// ExportPath - директория плоского экспорта.
	ExportPath string

	// ReportPath - путь к файлу отчёта.
	ReportPath string

	// Entries - полный упорядоченный каталог с итогами обработки.
	Entries []*catalog.Entry

	// ExportStats - счётчики экспорта.
	ExportStats export.Stats
}

// Runner выполняет один прогон пайплайна. Стадии выполняются строго
// последовательно; ошибки отдельных файлов записываются в их записи
// каталога и никогда не прерывают прогон, фатальны только ошибки
// ввода-вывода уровня стадии.
type Runner struct {
	sink      events.Sink
	converter Converter
	reporter  ReportWriter

	stage Stage
}

// NewRunner создаёт новый Runner с внедрёнными коллабораторами.
func NewRunner(sink events.Sink, converter Converter, reporter ReportWriter) *Runner {
	return &Runner{
		sink:      sink,
		converter: converter,
		reporter:  reporter,
		stage:     StagePreparing,
	}
}

// Stage возвращает текущую стадию прогона.
func (r *Runner) Stage() Stage {
	return r.stage
}

// enter переводит прогон в следующую стадию.
func (r *Runner) enter(stage Stage, category string) {
	r.stage = stage
	if category != "" {
		r.sink.Progress(0, 1, category)
	}
}

// fail переводит прогон в терминальную стадию Failed и оборачивает
// причинную цепочку ошибки.
func (r *Runner) fail(context string, err error) error {
	r.stage = StageFailed
	return fmt.Errorf("%s: %w", context, err)
}

// Run выполняет полный прогон для входа оператора inputPath.
func (r *Runner) Run(inputPath string) (*Result, error) {
	r.sink.Info("Начало обработки...")

	// 1. Подготовка staging (распаковка архива или копия папки).
	r.enter(StagePreparing, "Preparing staging folder")
	expander := archive.New(r.sink)
	preparer := workspace.NewPreparer(r.sink, expander)

	stagingRoot, err := preparer.Prepare(inputPath)
	if err != nil {
		return nil, r.fail("не удалось подготовить рабочую директорию", err)
	}

	// 2. Рекурсивная распаковка вложенных архивов.
	// Visited принадлежит прогону: один набор на один верхнеуровневый
	// запуск, без следов между прогонами.
	r.enter(StageDecompressing, "Decompressing zip files")
	visited := archive.NewVisited()
	if err := expander.RecursiveDecompress(stagingRoot, visited); err != nil {
		return nil, r.fail("не удалось рекурсивно распаковать архивы", err)
	}

	// 3. Каталогизация.
	r.enter(StageCataloging, "Scanning files")
	entries, err := catalog.NewBuilder(r.sink).Scan(stagingRoot)
	if err != nil {
		return nil, r.fail("не удалось просканировать файлы", err)
	}
	r.sink.Info(fmt.Sprintf("Найдено %d файлов. Начинаем конвертацию и хэширование...", len(entries)))

	// 4. Пофайловая обработка (хэш + конвертация).
	r.enter(StageProcessing, "")
	if err := r.processEntries(entries, stagingRoot); err != nil {
		return nil, r.fail("не удалось выполнить пофайловую обработку", err)
	}

	// 5. Экспорт и отчёт.
	result, err := r.finalize(entries, stagingRoot)
	if err != nil {
		return nil, err
	}

	r.enter(StageDone, "Complete")
	r.sink.Info(fmt.Sprintf("Обработка завершена. Файлов: %d. Экспорт: %s",
		len(entries), result.ExportPath))

	return result, nil
}

// processEntries обрабатывает записи каталога в порядке каталога.
// Каждая запись проходит: проверку пути, проверку существования,
// хэширование, конвертацию/классификацию. Ошибка одной записи не
// мешает обработке последующих.
func (r *Runner) processEntries(entries []*catalog.Entry, stagingRoot string) error {
	resolver, err := safepath.NewResolver(stagingRoot)
	if err != nil {
		return fmt.Errorf("не удалось канонизировать staging: %w", err)
	}

	// Подсчёт файлов, требующих обработки, для прогресса.
	total := 0
	for _, entry := range entries {
		path, err := resolver.Resolve(entry.OriginalRelPath)
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if r.converter.IsConvertible(path) || catalog.IsReadable(path) {
			total++
		}
	}
	r.sink.Info(fmt.Sprintf("К обработке %d файлов из %d", total, len(entries)))
	if total > 0 {
		r.sink.Progress(0, total, "Converting Documents")
	}

	processed := 0
	for _, entry := range entries {
		needsProgress := r.processEntry(entry, resolver, stagingRoot)
		if needsProgress {
			processed++
			r.sink.Progress(processed, total, "Converting Documents")
		}
	}

	return nil
}

// processEntry обрабатывает одну запись каталога. Возвращает true,
// если файл учитывается в счётчике прогресса (пригоден или конвертируем).
func (r *Runner) processEntry(entry *catalog.Entry, resolver *safepath.Resolver, stagingRoot string) bool {
	// 1. Проверка пути. Запись с недопустимым путём исключается из
	// всех последующих стадий: не хэшируется, не конвертируется,
	// не экспортируется.
	path, err := resolver.Resolve(entry.OriginalRelPath)
	if err != nil {
		r.sink.Warning(fmt.Sprintf(
			"SECURITY: заблокирован недопустимый путь записи каталога: %s", entry.OriginalRelPath))
		entry.MarkFailed("path validation failed - potential path traversal")
		return false
	}

	// 2. Проверка существования.
	if _, err := os.Stat(path); err != nil {
		entry.MarkFailed("file not found")
		return false
	}

	isConvertible := r.converter.IsConvertible(path)
	isReadable := catalog.IsReadable(path)
	needsProcessing := isConvertible || isReadable

	// 3. Хэширование.
	hash, err := hashing.SHA512File(path)
	if err != nil {
		r.sink.Warning(fmt.Sprintf("Не удалось хэшировать %s: %v", path, err))
		entry.MarkFailed(fmt.Sprintf("hash failed: %v", err))
		return needsProcessing
	}
	entry.SHA512 = hash

	// 4. Конвертация или классификация.
	if isConvertible {
		r.convertEntry(entry, path, stagingRoot)
	} else if isReadable {
		entry.Status = catalog.StatusConverted
	} else {
		entry.MarkSkipped("not LLM-readable and not convertible")
	}

	return needsProcessing
}

// convertEntry вызывает конвертер для одной записи и обновляет её
// working-идентичность по результату.
func (r *Runner) convertEntry(entry *catalog.Entry, path, stagingRoot string) {
	artifactPath, err := r.converter.Convert(path, stagingRoot)
	if err != nil {
		r.sink.Error(fmt.Sprintf("Конвертация %s не удалась: %v", path, err))
		entry.MarkFailed(fmt.Sprintf("conversion failed: %v", err))
		return
	}

	if artifactPath == "" {
		// Формат уже пригоден, артефакт не создавался.
		entry.Status = catalog.StatusConverted
		return
	}

	r.sink.Info(fmt.Sprintf("Сконвертировано %s -> %s", path, artifactPath))

	entry.WorkingName = filepath.Base(artifactPath)
	entry.ConvertedName = entry.WorkingName
	if rel, err := filepath.Rel(stagingRoot, artifactPath); err == nil {
		entry.WorkingRelPath = rel
	}

	// Перехэшируем артефакт; неудача очищает хэш, но не меняет статус.
	if hash, err := hashing.SHA512File(artifactPath); err == nil {
		entry.SHA512 = hash
	} else {
		r.sink.Warning(fmt.Sprintf("Не удалось хэшировать артефакт %s: %v", artifactPath, err))
		entry.SHA512 = ""
	}

	entry.Status = catalog.StatusConverted
}

// finalize экспортирует пригодные файлы и записывает отчёт.
// Директория экспорта - соседняя "<staging>_LLM", отчёт лежит внутри неё.
func (r *Runner) finalize(entries []*catalog.Entry, stagingRoot string) (*Result, error) {
	stagingName := filepath.Base(stagingRoot)
	exportPath := filepath.Join(filepath.Dir(stagingRoot), stagingName+"_LLM")

	r.enter(StageExporting, "Finishing up")
	stats, err := export.New(r.sink).Export(entries, stagingRoot, exportPath)
	if err != nil {
		return nil, r.fail("не удалось экспортировать пригодные файлы", err)
	}

	reportPath := filepath.Join(exportPath, stagingName+"_LLM_file-report.xlsx")
	if err := r.reporter.Write(entries, reportPath); err != nil {
		return nil, r.fail("не удалось сформировать отчёт", err)
	}
	r.enter(StageReportGenerated, "")

	return &Result{
		StagingPath: stagingRoot,
		ExportPath:  exportPath,
		ReportPath:  reportPath,
		Entries:     entries,
		ExportStats: stats,
	}, nil
}

/*
Возможные расширения:
- Абстрактная проверка отмены между итерациями по файлам
  (точка расширения для интерактивного запуска)
- Сводная статистика времени по стадиям
*/
