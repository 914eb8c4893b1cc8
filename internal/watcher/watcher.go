// Package watcher предоставляет функциональность слежения за входной папкой.
//
// В режиме watch утилита обрабатывает zip-архивы, появляющиеся в папке
// оператора, по одному прогону на архив.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/artemshloyda/llmprep/internal/events"
)

// Watcher следит за входной папкой и отправляет новые архивы в канал.
type Watcher struct {
	// inbox - отслеживаемая папка.
	inbox string

	// sink - приёмник событий.
	sink events.Sink

	// watcher - fsnotify watcher.
	watcher *fsnotify.Watcher

	// debounceTime - время ожидания перед обработкой файла.
	// Нужно для того, чтобы архив успел полностью записаться.
	debounceTime time.Duration

	// pending - файлы, ожидающие обработки (для debounce).
	pending map[string]time.Time
	mu      sync.Mutex
}

// New создаёт новый Watcher для папки inbox.
func New(inbox string, sink events.Sink) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("не удалось создать watcher: %w", err)
	}

	return &Watcher{
		inbox:        inbox,
		sink:         sink,
		watcher:      w,
		debounceTime: 500 * time.Millisecond,
		pending:      make(map[string]time.Time),
	}, nil
}

// SetDebounceTime устанавливает время debounce.
func (w *Watcher) SetDebounceTime(d time.Duration) {
	w.debounceTime = d
}

// Watch запускает слежение и возвращает канал с путями новых архивов.
// Канал закрывается при отмене контекста.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	info, err := os.Stat(w.inbox)
	if err != nil {
		return nil, fmt.Errorf("входная папка недоступна: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("вход %s не является папкой", w.inbox)
	}

	if err := w.watcher.Add(w.inbox); err != nil {
		return nil, fmt.Errorf("не удалось добавить папку %s: %w", w.inbox, err)
	}

	archives := make(chan string, 16)

	// Обе горутины только пишут в канал; закрывает его координатор
	// после завершения обеих, поэтому отправка никогда не гонится
	// с закрытием.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.processEvents(ctx)
	}()
	go func() {
		defer wg.Done()
		w.processPending(ctx, archives)
	}()
	go func() {
		wg.Wait()
		close(archives)
		_ = w.watcher.Close()
	}()

	w.sink.Info(fmt.Sprintf("Слежение за папкой: %s", w.inbox))
	return archives, nil
}

// processEvents обрабатывает события от fsnotify и наполняет pending.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Обрабатываем только создание и запись файлов
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}

			// Только zip-архивы верхнего уровня
			if !strings.EqualFold(filepath.Ext(event.Name), ".zip") {
				continue
			}

			// Добавляем в pending для debounce
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sink.Error(fmt.Sprintf("Ошибка watcher: %v", err))
		}
	}
}

// processPending обрабатывает файлы из pending после debounce.
func (w *Watcher) processPending(ctx context.Context, archives chan<- string) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flushPending(ctx, archives)
		}
	}
}

// flushPending проверяет pending файлы и отправляет стабилизировавшиеся.
// Отправка прерывается отменой контекста, чтобы не блокироваться навсегда
// при заполненном канале.
func (w *Watcher) flushPending(ctx context.Context, archives chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for path, addedAt := range w.pending {
		if now.Sub(addedAt) < w.debounceTime {
			continue
		}

		delete(w.pending, path)

		if _, err := os.Stat(path); err != nil {
			continue
		}

		w.sink.Info(fmt.Sprintf("Обнаружен новый архив: %s", path))
		select {
		case archives <- path:
		case <-ctx.Done():
			return
		}
	}
}

// Close закрывает watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

/*
Возможные расширения:
- Добавить обработку папок, появляющихся в inbox
- Добавить rate limiting при массовой загрузке архивов
*/
