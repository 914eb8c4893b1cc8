// Package progress предоставляет консольный приёмник событий пайплайна:
// цветные лог-сообщения и прогресс-бар по стадиям.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// Console - приёмник событий, который пишет сообщения в терминал
// и отображает прогресс-бар текущей стадии.
type Console struct {
	// mu защищает доступ к bar и category.
	mu sync.Mutex

	// bar - прогресс-бар текущей стадии (nil, если прогресс отключён).
	bar *progressbar.ProgressBar

	// category - стадия, для которой создан текущий bar.
	category string

	// verbose - выводить INFO-сообщения.
	verbose bool

	// noProgress - отключить прогресс-бар.
	noProgress bool

	// startTime - время создания приёмника.
	startTime time.Time

	// writer - куда выводить (по умолчанию os.Stderr).
	writer io.Writer

	warnColor *color.Color
	errColor  *color.Color
	infoColor *color.Color
}

// Options содержит настройки консольного приёмника.
type Options struct {
	// Verbose - выводить INFO-сообщения.
	Verbose bool

	// NoProgress - отключить прогресс-бар.
	NoProgress bool

	// Writer - куда выводить (по умолчанию os.Stderr).
	Writer io.Writer
}

// NewConsole создаёт новый консольный приёмник.
func NewConsole(opts Options) *Console {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	return &Console{
		verbose:    opts.Verbose,
		noProgress: opts.NoProgress,
		startTime:  time.Now(),
		writer:     writer,
		warnColor:  color.New(color.FgYellow),
		errColor:   color.New(color.FgRed, color.Bold),
		infoColor:  color.New(color.FgCyan),
	}
}

// Info выводит обычное сообщение (только в verbose-режиме).
func (c *Console) Info(msg string) {
	if !c.verbose {
		return
	}
	c.writeMessage(c.infoColor, "INFO", msg)
}

// Warning выводит предупреждение.
func (c *Console) Warning(msg string) {
	c.writeMessage(c.warnColor, "WARNING", msg)
}

// Error выводит сообщение об ошибке.
func (c *Console) Error(msg string) {
	c.writeMessage(c.errColor, "ERROR", msg)
}

// Progress отображает прогресс текущей стадии. При смене категории
// создаётся новый прогресс-бар.
func (c *Console) Progress(current, total int, category string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.noProgress {
		return
	}

	if c.bar == nil || c.category != category {
		if c.bar != nil {
			_ = c.bar.Finish()
			fmt.Fprintln(c.writer)
		}
		c.category = category
		c.bar = c.newBar(total, category)
	}

	c.bar.ChangeMax(total)
	_ = c.bar.Set(current)
}

// newBar создаёт прогресс-бар для одной стадии.
func (c *Console) newBar(total int, category string) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(c.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(category),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]▓[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionSetPredictTime(true),
	)
}

// writeMessage выводит сообщение, временно скрывая прогресс-бар.
func (c *Console) writeMessage(col *color.Color, level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		_ = c.bar.Clear()
	}

	_, _ = col.Fprintf(c.writer, "%s: ", level)
	fmt.Fprintln(c.writer, msg)

	if c.bar != nil {
		_ = c.bar.RenderBlank()
	}
}

// Finish завершает текущий прогресс-бар.
func (c *Console) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		_ = c.bar.Finish()
		fmt.Fprintln(c.writer)
		c.bar = nil
	}
}

// Duration возвращает время с создания приёмника.
func (c *Console) Duration() time.Duration {
	return time.Since(c.startTime)
}

/*
Возможные расширения:
- Добавить вывод в файл лога параллельно с прогресс-баром
- Добавить счётчик предупреждений для итоговой сводки
*/
