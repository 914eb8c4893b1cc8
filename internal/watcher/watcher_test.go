package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artemshloyda/llmprep/internal/events"
)

func startWatcher(t *testing.T, inbox string) (<-chan string, context.CancelFunc) {
	t.Helper()

	w, err := New(inbox, events.Nop{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.SetDebounceTime(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	archives, err := w.Watch(ctx)
	if err != nil {
		cancel()
		t.Fatalf("Watch() error = %v", err)
	}
	return archives, cancel
}

func TestWatcher_DetectsNewArchive(t *testing.T) {
	inbox := t.TempDir()
	archives, cancel := startWatcher(t, inbox)
	defer cancel()

	want := filepath.Join(inbox, "delivery.zip")
	if err := os.WriteFile(want, []byte("PK"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-archives:
		if got != want {
			t.Errorf("получен путь %q, want %q", got, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("архив не обнаружен за отведённое время")
	}
}

func TestWatcher_IgnoresNonArchives(t *testing.T) {
	inbox := t.TempDir()
	archives, cancel := startWatcher(t, inbox)
	defer cancel()

	if err := os.WriteFile(filepath.Join(inbox, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-archives:
		t.Errorf("не-архив не должен попадать в канал: %q", got)
	case <-time.After(500 * time.Millisecond):
		// Ожидаемое поведение: событий нет.
	}
}

func TestWatcher_ClosesOnCancel(t *testing.T) {
	inbox := t.TempDir()
	archives, cancel := startWatcher(t, inbox)

	cancel()

	select {
	case _, ok := <-archives:
		if ok {
			t.Error("после отмены контекста канал должен быть закрыт")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("канал не закрылся после отмены контекста")
	}
}

func TestWatcher_CancelWhileSendBlocked(t *testing.T) {
	inbox := t.TempDir()

	w, err := New(inbox, events.Nop{})
	if err != nil {
		t.Fatal(err)
	}
	w.SetDebounceTime(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	archives, err := w.Watch(ctx)
	if err != nil {
		cancel()
		t.Fatal(err)
	}

	// Больше архивов, чем вмещает буфер канала; канал никто не читает,
	// поэтому отправка из flush гарантированно блокируется.
	for i := 0; i < 32; i++ {
		name := filepath.Join(inbox, fmt.Sprintf("batch%02d.zip", i))
		if err := os.WriteFile(name, []byte("PK"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(500 * time.Millisecond)

	// Отмена во время заблокированной отправки не должна паниковать:
	// канал закрывает единственный владелец после остановки писателей.
	cancel()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-archives:
			if !ok {
				return // канал корректно закрыт
			}
		case <-deadline:
			t.Fatal("канал не закрылся после отмены контекста")
		}
	}
}

func TestWatcher_MissingInbox(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "нет-такой"), events.Nop{})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Close() }()

	if _, err := w.Watch(context.Background()); err == nil {
		t.Error("Watch() для отсутствующей папки должен вернуть ошибку")
	}
}
