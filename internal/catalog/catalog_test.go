package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/artemshloyda/llmprep/internal/events"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{1023, "1023 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{1073741824, "1.00 GB"},
		{1099511627776, "1.00 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatSize(tt.bytes); got != tt.want {
				t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestIsSystemArtifact(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"~$report.docx", true},
		{"._photo.jpg", true},
		{".DS_Store", true},
		{".DSfoo", true},
		{"desktop.ini", true},
		{"Desktop.ini", true},
		{"thumbs.db", true},
		{"Thumbs.db", true},
		{"report.docx", false},
		{"notes.txt", false},
		{".gitignore", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSystemArtifact(tt.name); got != tt.want {
				t.Errorf("IsSystemArtifact(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestIsReadable(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a/b/notes.txt", true},
		{"README.md", true},
		{"doc.PDF", true},
		{"data.csv", true},
		{"page.htm", true},
		{"app.log", true},
		{"archive.zip", false},
		{"report.docx", false},
		{"noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsReadable(tt.path); got != tt.want {
				t.Errorf("IsReadable(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestNewEntry(t *testing.T) {
	e := NewEntry("a.txt", "sub/a.txt", "txt", 1536, "2024-01-01 10:00:00", "2024-01-01 10:00:00")

	if e.Status != StatusPending {
		t.Errorf("Status = %v, want %v", e.Status, StatusPending)
	}
	if e.WorkingName != e.OriginalName || e.WorkingRelPath != e.OriginalRelPath {
		t.Error("working-поля должны совпадать с original при создании")
	}
	if e.SizeHuman != "1.50 KB" {
		t.Errorf("SizeHuman = %q, want %q", e.SizeHuman, "1.50 KB")
	}
}

func TestBuilder_Scan(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "notes.txt"), "hello")
	mustWrite(t, filepath.Join(root, "sub", "data.csv"), "a,b")
	mustWrite(t, filepath.Join(root, "thumbs.db"), "junk")
	mustWrite(t, filepath.Join(root, "sub", "._meta"), "junk")

	b := NewBuilder(events.Nop{})
	entries, err := b.Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Scan() вернул %d записей, want 2", len(entries))
	}

	for _, e := range entries {
		if e.OriginalName == "thumbs.db" || e.OriginalName == "._meta" {
			t.Errorf("служебный файл %s попал в каталог", e.OriginalName)
		}
		if e.Status != StatusPending {
			t.Errorf("запись %s: Status = %v, want pending", e.OriginalName, e.Status)
		}
	}
}

func TestBuilder_Scan_FileType(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "noext"), "x")
	mustWrite(t, filepath.Join(root, "doc.DOCX"), "x")

	b := NewBuilder(events.Nop{})
	entries, err := b.Scan(root)
	if err != nil {
		t.Fatal(err)
	}

	types := map[string]string{}
	for _, e := range entries {
		types[e.OriginalName] = e.FileType
	}

	if types["noext"] != "unknown" {
		t.Errorf("FileType без расширения = %q, want %q", types["noext"], "unknown")
	}
	if types["doc.DOCX"] != "DOCX" {
		t.Errorf("FileType = %q, want %q", types["doc.DOCX"], "DOCX")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
