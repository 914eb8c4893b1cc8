// Package events определяет интерфейс приёмника событий пайплайна.
//
// Приёмник передаётся явно в конструкторы всех стадий (dependency
// injection), глобального логгера в проекте нет. Отсутствующий
// наблюдатель никогда не блокирует и не ломает пайплайн.
package events

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Sink принимает лог-сообщения и уведомления о прогрессе.
type Sink interface {
	// Info сообщает об обычном событии.
	Info(msg string)

	// Warning сообщает о неблокирующей проблеме (skip, traversal, цикл).
	Warning(msg string)

	// Error сообщает об ошибке уровня файла или архива.
	Error(msg string)

	// Progress сообщает о прогрессе текущей стадии.
	// category - человекочитаемое название стадии.
	Progress(current, total int, category string)
}

// Nop - приёмник, который игнорирует все события.
type Nop struct{}

func (Nop) Info(string)               {}
func (Nop) Warning(string)            {}
func (Nop) Error(string)              {}
func (Nop) Progress(int, int, string) {}

// Entry - одно записанное событие (для Memory).
type Entry struct {
	// Level - уровень события (INFO, WARNING, ERROR).
	Level string

	// Message - текст события.
	Message string

	// Timestamp - время события.
	Timestamp time.Time
}

// Memory накапливает события в памяти. Используется в тестах
// и для отображения журнала после завершения прогона.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory создаёт новый Memory.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) record(level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{
		Level:     level,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

func (m *Memory) Info(msg string)    { m.record("INFO", msg) }
func (m *Memory) Warning(msg string) { m.record("WARNING", msg) }
func (m *Memory) Error(msg string)   { m.record("ERROR", msg) }

func (m *Memory) Progress(current, total int, category string) {
	m.record("PROGRESS", fmt.Sprintf("%s: %d/%d", category, current, total))
}

// Entries возвращает копию накопленных событий.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// HasWarning проверяет, было ли записано предупреждение с подстрокой substr.
func (m *Memory) HasWarning(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Level == "WARNING" && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

/*
Возможные расширения:
- Добавить уровень DEBUG с фильтрацией
- Добавить fan-out приёмник для нескольких наблюдателей
*/
