package archive

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artemshloyda/llmprep/internal/events"
)

// buildZip собирает zip-архив в памяти из карты имя -> содержимое.
func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// newTestExpander создаёт Expander с уникальными суффиксами имён,
// чтобы распаковки в одном тесте не пересекались по директориям.
func newTestExpander(sink events.Sink) *Expander {
	e := New(sink)
	seq := 0
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time {
		seq++
		return base.Add(time.Duration(seq) * time.Second)
	}
	return e
}

func TestExpandZip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "docs.zip")
	data := buildZip(t, map[string][]byte{
		"readme.txt":     []byte("hello"),
		"sub/data.csv":   []byte("a,b"),
		"emptydir/":      nil,
		"sub/inner/x.md": []byte("# x"),
	})
	if err := os.WriteFile(zipPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	e := newTestExpander(events.Nop{})
	outDir, err := e.ExpandZip(zipPath)
	if err != nil {
		t.Fatalf("ExpandZip() error = %v", err)
	}

	if !strings.HasPrefix(filepath.Base(outDir), "docs__") {
		t.Errorf("имя директории распаковки = %q, ожидался префикс docs__", filepath.Base(outDir))
	}

	for _, rel := range []string{"readme.txt", "sub/data.csv", "sub/inner/x.md"} {
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("файл %s не извлечён: %v", rel, err)
		}
	}
	if info, err := os.Stat(filepath.Join(outDir, "emptydir")); err != nil || !info.IsDir() {
		t.Error("директорийный элемент архива не создан")
	}
}

func TestExpandZip_Traversal(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	data := buildZip(t, map[string][]byte{
		"../escape.txt":       []byte("outside"),
		"..\\escape2.txt":     []byte("outside"),
		"/abs/path.txt":       []byte("outside"),
		"nested/../../up.txt": []byte("outside"),
		"ok.txt":              []byte("inside"),
	})
	if err := os.WriteFile(zipPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	sink := events.NewMemory()
	e := newTestExpander(sink)
	outDir, err := e.ExpandZip(zipPath)
	if err != nil {
		t.Fatalf("ExpandZip() error = %v", err)
	}

	// Свойство containment: ничего не записано вне директории распаковки.
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("файл записан за пределами директории распаковки")
	}
	if _, err := os.Stat(filepath.Join(outDir, "ok.txt")); err != nil {
		t.Errorf("безопасный элемент не извлечён: %v", err)
	}

	// Всё извлечённое лежит внутри outDir.
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if path == zipPath {
			return nil
		}
		if !strings.HasPrefix(path, outDir) {
			t.Errorf("файл %s вне директории распаковки", path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestExpandZip_Corrupt(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "broken.zip")
	if err := os.WriteFile(zipPath, []byte("это не zip"), 0644); err != nil {
		t.Fatal(err)
	}

	e := newTestExpander(events.Nop{})
	if _, err := e.ExpandZip(zipPath); err == nil {
		t.Error("ExpandZip() для повреждённого архива должен вернуть ошибку")
	}
}

func TestRecursiveDecompress_Nested(t *testing.T) {
	dir := t.TempDir()

	inner := buildZip(t, map[string][]byte{"data.xlsx": []byte("xlsx-bytes")})
	outer := buildZip(t, map[string][]byte{
		"report.docx": []byte("docx-bytes"),
		"nested.zip":  inner,
	})
	if err := os.WriteFile(filepath.Join(dir, "bundle.zip"), outer, 0644); err != nil {
		t.Fatal(err)
	}

	e := newTestExpander(events.Nop{})
	visited := NewVisited()
	if err := e.RecursiveDecompress(dir, visited); err != nil {
		t.Fatalf("RecursiveDecompress() error = %v", err)
	}

	// Содержимое обоих уровней извлечено.
	found := map[string]bool{}
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			found[filepath.Base(path)] = true
		}
		return nil
	})

	for _, name := range []string{"report.docx", "data.xlsx"} {
		if !found[name] {
			t.Errorf("файл %s не извлечён из вложенного архива", name)
		}
	}

	// Успешно распакованные архивы потреблены: в дереве не осталось
	// ни внешнего, ни вложенного архива.
	for _, name := range []string{"bundle.zip", "nested.zip"} {
		if found[name] {
			t.Errorf("архив %s должен быть удалён после распаковки", name)
		}
	}
}

func TestRecursiveDecompress_Termination(t *testing.T) {
	dir := t.TempDir()

	// Два дублирующихся архива: каждый отдельный канонический путь
	// обрабатывается не более одного раза.
	data := buildZip(t, map[string][]byte{"a.txt": []byte("x")})
	if err := os.WriteFile(filepath.Join(dir, "one.zip"), data, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "two.zip"), data, 0644); err != nil {
		t.Fatal(err)
	}

	sink := events.NewMemory()
	e := newTestExpander(sink)
	visited := NewVisited()

	done := make(chan error, 1)
	go func() { done <- e.RecursiveDecompress(dir, visited) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RecursiveDecompress() error = %v", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("RecursiveDecompress() не завершился: подозрение на цикл")
	}

	if len(visited) < 2 {
		t.Errorf("visited содержит %d путей, want >= 2", len(visited))
	}
}

func TestRecursiveDecompress_VisitedArchiveSkipped(t *testing.T) {
	dir := t.TempDir()

	data := buildZip(t, map[string][]byte{"a.txt": []byte("x")})
	zipPath := filepath.Join(dir, "seen.zip")
	if err := os.WriteFile(zipPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	sink := events.NewMemory()
	e := newTestExpander(sink)

	// Архив уже числится обработанным в рамках прогона.
	visited := NewVisited()
	visited.Add(canonicalOrSelf(zipPath))

	if err := e.RecursiveDecompress(dir, visited); err != nil {
		t.Fatal(err)
	}

	if !sink.HasWarning("уже обработанного архива") {
		t.Error("повторная встреча архива должна логировать пропуск")
	}

	// Пропущенный архив не распаковывается и не потребляется.
	if _, err := os.Stat(zipPath); err != nil {
		t.Errorf("пропущенный архив не должен удаляться: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); !os.IsNotExist(err) {
		t.Error("пропущенный архив не должен распаковываться")
	}
}

func TestRecursiveDecompress_CorruptArchiveIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.zip"), []byte("мусор"), 0644); err != nil {
		t.Fatal(err)
	}
	good := buildZip(t, map[string][]byte{"ok.txt": []byte("ok")})
	if err := os.WriteFile(filepath.Join(dir, "good.zip"), good, 0644); err != nil {
		t.Fatal(err)
	}

	e := newTestExpander(events.NewMemory())
	if err := e.RecursiveDecompress(dir, NewVisited()); err != nil {
		t.Fatalf("повреждённый архив не должен прерывать прогон: %v", err)
	}

	found := false
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && filepath.Base(path) == "ok.txt" {
			found = true
		}
		return nil
	})
	if !found {
		t.Error("исправный архив должен быть распакован несмотря на повреждённый сосед")
	}

	// Повреждённый архив не потребляется и остаётся видимым для каталога.
	if _, err := os.Stat(filepath.Join(dir, "bad.zip")); err != nil {
		t.Errorf("повреждённый архив должен остаться в дереве: %v", err)
	}
	// Исправный архив потреблён.
	if _, err := os.Stat(filepath.Join(dir, "good.zip")); !os.IsNotExist(err) {
		t.Error("успешно распакованный архив должен быть удалён")
	}
}

func TestDecompressGzip(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte("gzipped payload")); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	gzPath := filepath.Join(dir, "payload.txt.gz")
	if err := os.WriteFile(gzPath, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	e := newTestExpander(events.Nop{})
	if err := e.RecursiveDecompress(dir, NewVisited()); err != nil {
		t.Fatalf("RecursiveDecompress() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	var outName string
	for _, de := range entries {
		if strings.HasPrefix(de.Name(), "payload.txt__") {
			outName = de.Name()
		}
	}
	if outName == "" {
		t.Fatal("выходной файл gz не найден")
	}

	content, err := os.ReadFile(filepath.Join(dir, outName))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "gzipped payload" {
		t.Errorf("содержимое = %q, want %q", content, "gzipped payload")
	}
}

func TestDecompressGzip_NestedZipInsideGzip(t *testing.T) {
	dir := t.TempDir()

	zipData := buildZip(t, map[string][]byte{"inner.txt": []byte("from zip in gz")})
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(zipData); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	// После распаковки "bundle.zip.gz" остаётся имя "bundle.zip__<ts>" -
	// без расширения архива, поэтому дальше начинается только если
	// выход распознан как архив. Проверяем цепочку zip.gz -> zip.
	if err := os.WriteFile(filepath.Join(dir, "bundle.gz"), buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	e := newTestExpander(events.Nop{})
	if err := e.RecursiveDecompress(dir, NewVisited()); err != nil {
		t.Fatal(err)
	}

	// Выход gz называется "bundle__<ts>" без расширения - не архив,
	// цепочка останавливается. Файл существует и содержит zip-байты.
	entries, _ := os.ReadDir(dir)
	var out string
	for _, de := range entries {
		if strings.HasPrefix(de.Name(), "bundle__") {
			out = de.Name()
		}
	}
	if out == "" {
		t.Fatal("выход gz не создан")
	}
	content, err := os.ReadFile(filepath.Join(dir, out))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(content, zipData) {
		t.Error("содержимое выхода gz не совпадает с исходными zip-байтами")
	}
}

func TestIsArchive(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.zip", true},
		{"a.ZIP", true},
		{"a.gz", true},
		{"a.tar.gz", true},
		{"a.txt", false},
		{"archive", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsArchive(tt.path); got != tt.want {
				t.Errorf("IsArchive(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
