// Package cli содержит CLI интерфейс приложения.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/artemshloyda/llmprep/internal/catalog"
	"github.com/artemshloyda/llmprep/internal/config"
	"github.com/artemshloyda/llmprep/internal/converter"
	"github.com/artemshloyda/llmprep/internal/journal"
	"github.com/artemshloyda/llmprep/internal/officefinder"
	"github.com/artemshloyda/llmprep/internal/pipeline"
	"github.com/artemshloyda/llmprep/internal/progress"
	"github.com/artemshloyda/llmprep/internal/report"
	"github.com/artemshloyda/llmprep/internal/watcher"
)

var (
	// Version будет установлена при сборке.
	Version = "dev"

	// BuildTime будет установлена при сборке.
	BuildTime = "unknown"
)

// flagValues - значения флагов корневой команды.
type flagValues struct {
	in          string
	configPath  string
	soffice     string
	journalPath string
	noJournal   bool
	timeout     time.Duration
	watch       bool
	verbose     bool
	noProgress  bool
}

// NewRootCmd создаёт корневую команду CLI.
func NewRootCmd() *cobra.Command {
	fv := &flagValues{}

	rootCmd := &cobra.Command{
		Use:   "llmprep",
		Short: "Подготовка пакетов документов для LLM",
		Long: `llmprep - CLI утилита для подготовки пакетов документов к загрузке в LLM.

Принимает zip-архив или папку, рекурсивно распаковывает вложенные архивы,
конвертирует офисные документы в пригодные форматы (PDF, Markdown),
дедуплицирует файлы по содержимому (SHA-512) и собирает плоскую выгрузку
с табличным отчётом.

Исходные данные никогда не модифицируются: вся работа идёт в staging-копии.

Примеры:
  # Обработать архив
  llmprep --in ./delivery.zip

  # Обработать папку с подробным выводом
  llmprep --in ./docs -v

  # Следить за папкой и обрабатывать новые архивы
  llmprep --in ./inbox --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrep(cmd, fv)
		},
	}

	flags := rootCmd.Flags()

	flags.StringVar(&fv.in, "in", "", "Входной zip-архив или папка (обязательно)")
	flags.StringVar(&fv.configPath, "config", "", "Путь к YAML файлу конфигурации")
	flags.StringVar(&fv.soffice, "soffice", "", "Путь к бинарнику soffice (по умолчанию автопоиск)")
	flags.StringVar(&fv.journalPath, "journal", "", "Путь к SQLite журналу прогонов")
	flags.BoolVar(&fv.noJournal, "no-journal", false, "Отключить журнал прогонов")
	flags.DurationVar(&fv.timeout, "timeout", 5*time.Minute, "Таймаут одной конвертации")
	flags.BoolVar(&fv.watch, "watch", false, "Следить за входной папкой и обрабатывать новые архивы")
	flags.BoolVarP(&fv.verbose, "verbose", "v", false, "Подробный вывод")
	flags.BoolVar(&fv.noProgress, "no-progress", false, "Отключить прогресс-бар")

	// Подкоманды
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// buildConfig собирает итоговую конфигурацию: значения по умолчанию,
// затем файл конфигурации, затем явно указанные флаги.
func buildConfig(cmd *cobra.Command, fv *flagValues) (*config.Config, error) {
	cfg := config.DefaultConfig()

	fc, path, err := config.FindAndLoadConfig(fv.configPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}
	if fc != nil {
		fc.ApplyToConfig(cfg)
		if fv.verbose {
			fmt.Fprintf(os.Stderr, "Конфигурация загружена из %s\n", path)
		}
	}

	// CLI флаги имеют приоритет над файлом.
	flags := cmd.Flags()
	if flags.Changed("in") {
		cfg.InputPath = fv.in
	}
	if flags.Changed("soffice") {
		cfg.SofficePath = fv.soffice
	}
	if flags.Changed("journal") {
		cfg.JournalPath = fv.journalPath
	}
	if flags.Changed("no-journal") {
		cfg.NoJournal = fv.noJournal
	}
	if flags.Changed("timeout") {
		cfg.ConvertTimeout = fv.timeout
	}
	if flags.Changed("watch") {
		cfg.Watch = fv.watch
	}
	if flags.Changed("verbose") {
		cfg.Verbose = fv.verbose
	}
	if flags.Changed("no-progress") {
		cfg.NoProgress = fv.noProgress
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}
	return cfg, nil
}

// runPrep выполняет основную логику: один прогон или режим watch.
func runPrep(cmd *cobra.Command, fv *flagValues) error {
	cfg, err := buildConfig(cmd, fv)
	if err != nil {
		return err
	}

	// Создаём контекст с обработкой сигналов
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nПолучен сигнал завершения, останавливаем...")
		cancel()
	}()

	sink := progress.NewConsole(progress.Options{
		Verbose:    cfg.Verbose,
		NoProgress: cfg.NoProgress,
	})
	defer sink.Finish()

	// Ищем soffice. Без него офисные документы получат статус failed,
	// остальной пайплайн работает.
	sofficePath := ""
	if info, err := officefinder.NewFinder(cfg.SofficePath).Find(); err != nil {
		sink.Warning(fmt.Sprintf(
			"LibreOffice не найден, офисные документы не будут сконвертированы: %v", err))
	} else {
		sofficePath = info.Path
		sink.Info(fmt.Sprintf("Найден soffice: %s (версия %s)", info.Path, info.Version))
	}

	conv := converter.NewOffice(sofficePath, sink)
	conv.SetTimeout(cfg.ConvertTimeout)
	reporter := report.NewWriter(sink)

	// Журнал прогонов наблюдательный: его недоступность не мешает работе.
	var jrnl *journal.Journal
	if !cfg.NoJournal {
		jrnl, err = journal.Open(cfg.JournalPath)
		if err != nil {
			sink.Warning(fmt.Sprintf("Журнал прогонов недоступен: %v", err))
			jrnl = nil
		} else {
			defer func() { _ = jrnl.Close() }()
			if cleaned, err := jrnl.CleanupInProgress(); err == nil && cleaned > 0 {
				sink.Info(fmt.Sprintf("Помечено прерванными прогонов: %d", cleaned))
			}
		}
	}

	if cfg.Watch {
		return runWatch(ctx, cfg, sink, conv, reporter, jrnl)
	}
	return runOnce(cfg.InputPath, sink, conv, reporter, jrnl)
}

// runOnce выполняет один прогон пайплайна для входа inputPath.
func runOnce(inputPath string, sink *progress.Console, conv pipeline.Converter,
	reporter pipeline.ReportWriter, jrnl *journal.Journal) error {

	startTime := time.Now()

	runID := ""
	if jrnl != nil {
		if id, err := jrnl.StartRun(inputPath); err != nil {
			sink.Warning(fmt.Sprintf("Не удалось зарегистрировать прогон: %v", err))
		} else {
			runID = id
		}
	}

	result, err := pipeline.NewRunner(sink, conv, reporter).Run(inputPath)
	if err != nil {
		if runID != "" {
			_ = jrnl.FinishRunFailed(runID, err.Error())
		}
		return err
	}
	if runID != "" {
		if err := jrnl.FinishRunOK(runID, result); err != nil {
			sink.Warning(fmt.Sprintf("Не удалось записать итог прогона: %v", err))
		}
	}

	sink.Finish()
	printSummary(result, time.Since(startTime))
	return nil
}

// runWatch следит за входной папкой и запускает прогон на каждый новый архив.
func runWatch(ctx context.Context, cfg *config.Config, sink *progress.Console,
	conv pipeline.Converter, reporter pipeline.ReportWriter, jrnl *journal.Journal) error {

	w, err := watcher.New(cfg.InputPath, sink)
	if err != nil {
		return err
	}

	archives, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Режим watch: кладите zip-архивы в %s (Ctrl+C для выхода)\n", cfg.InputPath)

	for archive := range archives {
		if err := runOnce(archive, sink, conv, reporter, jrnl); err != nil {
			// Ошибка одного архива не останавливает слежение.
			sink.Error(fmt.Sprintf("Прогон для %s завершился с ошибкой: %v", archive, err))
		}
	}
	return nil
}

// printSummary выводит итоги прогона.
func printSummary(result *pipeline.Result, duration time.Duration) {
	var converted, skipped, failed int
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

	bold := color.New(color.Bold)
	_, _ = bold.Println("Результаты:")
	fmt.Printf("   Всего файлов: %d\n", len(result.Entries))
	fmt.Printf("   Пригодных: %d\n", converted)
	fmt.Printf("   Пропущено: %d\n", skipped)
	if failed > 0 {
		_, _ = color.New(color.FgRed).Printf("   Ошибок: %d\n", failed)
	} else {
		fmt.Printf("   Ошибок: 0\n")
	}
	fmt.Printf("   Дубликатов отсечено: %d\n", result.ExportStats.DuplicatesSkipped)
	fmt.Printf("   Выгрузка: %s\n", result.ExportPath)
	fmt.Printf("   Отчёт: %s\n", result.ReportPath)
	fmt.Printf("   Время: %s\n", duration.Round(time.Millisecond))
}

// newVersionCmd создаёт команду version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("llmprep %s (built %s)\n", Version, BuildTime)
		},
	}
}

// newStatsCmd создаёт команду stats.
func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Показать статистику журнала прогонов",
		RunE: func(cmd *cobra.Command, args []string) error {
			journalPath, _ := cmd.Flags().GetString("journal")

			jrnl, err := journal.Open(journalPath)
			if err != nil {
				return fmt.Errorf("не удалось открыть журнал: %w", err)
			}
			defer func() { _ = jrnl.Close() }()

			stats, err := jrnl.GetStats()
			if err != nil {
				return fmt.Errorf("не удалось получить статистику: %w", err)
			}

			fmt.Printf("Статистика журнала:\n")
			fmt.Printf("   Всего прогонов: %d\n", stats.TotalRuns)
			fmt.Printf("   Успешных: %d\n", stats.OKRuns)
			fmt.Printf("   С ошибками: %d\n", stats.FailedRuns)
			fmt.Printf("   Всего файлов: %d\n", stats.TotalFiles)
			fmt.Printf("   Пригодных: %d\n", stats.Converted)
			fmt.Printf("   Пропущено: %d\n", stats.Skipped)
			fmt.Printf("   Ошибок по файлам: %d\n", stats.Failed)

			return nil
		},
	}

	cmd.Flags().String("journal", "", "Путь к SQLite журналу прогонов")
	_ = cmd.MarkFlagRequired("journal")

	return cmd
}

// newConfigCmd создаёт команду config с подкомандой init.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Работа с файлом конфигурации",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Вывести пример файла конфигурации",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(config.GenerateExampleConfig())
		},
	})

	return cmd
}

// Execute запускает CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		// Не выводим ошибку, cobra уже вывела
		os.Exit(1)
	}
}

/*
Возможные расширения:
- Добавить команду clean для удаления staging-директорий
- Добавить команду report для повторной генерации отчёта по журналу
*/
