package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/artemshloyda/llmprep/internal/catalog"
	"github.com/artemshloyda/llmprep/internal/events"
	"github.com/artemshloyda/llmprep/internal/hashing"
)

func newEntry(t *testing.T, staging, rel, content string) *catalog.Entry {
	t.Helper()
	path := filepath.Join(staging, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	e := catalog.NewEntry(filepath.Base(rel), rel, "txt", int64(len(content)),
		"2024-01-01 00:00:00", "2024-01-01 00:00:00")
	e.Status = catalog.StatusConverted
	return e
}

func TestExport_Dedup(t *testing.T) {
	staging := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	// Два файла с одинаковым содержимым, разные имена.
	a := newEntry(t, staging, "a.txt", "same content")
	b := newEntry(t, staging, "sub/b.txt", "same content")
	c := newEntry(t, staging, "c.txt", "different")

	ex := New(events.Nop{})
	stats, err := ex.Export([]*catalog.Entry{a, b, c}, staging, out)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if stats.Copied != 2 {
		t.Errorf("Copied = %d, want 2", stats.Copied)
	}
	if stats.DuplicatesSkipped != 1 {
		t.Errorf("DuplicatesSkipped = %d, want 1", stats.DuplicatesSkipped)
	}

	// Первое вхождение побеждает: скопирован a.txt, не b.txt.
	if _, err := os.Stat(filepath.Join(out, "a.txt")); err != nil {
		t.Error("первое вхождение дубликата должно быть скопировано")
	}
	if _, err := os.Stat(filepath.Join(out, "b.txt")); !os.IsNotExist(err) {
		t.Error("второе вхождение дубликата не должно копироваться")
	}
}

func TestExport_StoredHashUsed(t *testing.T) {
	staging := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	a := newEntry(t, staging, "a.txt", "payload")
	b := newEntry(t, staging, "b.txt", "payload")
	h, err := hashing.SHA512File(filepath.Join(staging, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	a.SHA512 = h
	b.SHA512 = h

	ex := New(events.Nop{})
	stats, err := ex.Export([]*catalog.Entry{a, b}, staging, out)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Copied != 1 || stats.DuplicatesSkipped != 1 {
		t.Errorf("stats = %+v, want Copied=1 DuplicatesSkipped=1", stats)
	}
}

func TestExport_OnlyConverted(t *testing.T) {
	staging := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	ok := newEntry(t, staging, "ok.txt", "ok")
	failed := newEntry(t, staging, "failed.txt", "failed")
	failed.MarkFailed("hash failed")
	skipped := newEntry(t, staging, "skipped.bin", "skipped")
	skipped.MarkSkipped("not consumable")

	ex := New(events.Nop{})
	stats, err := ex.Export([]*catalog.Entry{ok, failed, skipped}, staging, out)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Copied != 1 {
		t.Errorf("Copied = %d, want 1 (только Converted)", stats.Copied)
	}
	if _, err := os.Stat(filepath.Join(out, "failed.txt")); !os.IsNotExist(err) {
		t.Error("записи со статусом failed не экспортируются")
	}
}

func TestExport_NameCollision(t *testing.T) {
	staging := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	// Одинаковые имена, разное содержимое: оба копируются,
	// второй получает числовой суффикс.
	a := newEntry(t, staging, "dir1/notes.txt", "first")
	b := newEntry(t, staging, "dir2/notes.txt", "second")

	ex := New(events.Nop{})
	stats, err := ex.Export([]*catalog.Entry{a, b}, staging, out)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Copied != 2 {
		t.Fatalf("Copied = %d, want 2", stats.Copied)
	}

	if _, err := os.Stat(filepath.Join(out, "notes.txt")); err != nil {
		t.Error("первый файл должен сохранить имя")
	}
	if _, err := os.Stat(filepath.Join(out, "notes_1.txt")); err != nil {
		t.Error("второй файл должен получить суффикс _1 перед расширением")
	}
}

func TestExport_ConvertedNameAsIs(t *testing.T) {
	staging := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	e := newEntry(t, staging, "report__converted.pdf", "pdf-bytes")
	e.ConvertedName = "report__converted.pdf"

	ex := New(events.Nop{})
	if _, err := ex.Export([]*catalog.Entry{e}, staging, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(out, "report__converted.pdf")); err != nil {
		t.Error("имя сконвертированного артефакта должно использоваться как есть")
	}
}

func TestExport_MissingSourceSkipped(t *testing.T) {
	staging := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	ghost := catalog.NewEntry("ghost.txt", "ghost.txt", "txt", 0,
		"2024-01-01 00:00:00", "2024-01-01 00:00:00")
	ghost.Status = catalog.StatusConverted
	real := newEntry(t, staging, "real.txt", "real")

	sink := events.NewMemory()
	ex := New(sink)
	stats, err := ex.Export([]*catalog.Entry{ghost, real}, staging, out)
	if err != nil {
		t.Fatalf("отсутствующий источник не должен быть фатальным: %v", err)
	}
	if stats.Copied != 1 {
		t.Errorf("Copied = %d, want 1", stats.Copied)
	}
	if !sink.HasWarning("не существует") {
		t.Error("отсутствующий источник должен логироваться")
	}
}
