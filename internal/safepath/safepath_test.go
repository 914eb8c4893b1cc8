package safepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name", "file.txt", "file.txt"},
		{"nested path", "a/b/c.txt", "a/b/c.txt"},
		{"leading slash", "/etc/passwd", "etc/passwd"},
		{"leading backslash", "\\windows\\system32", "windows/system32"},
		{"traversal unix", "../../etc/passwd", "etc/passwd"},
		{"traversal windows", "..\\..\\boot.ini", "boot.ini"},
		{"mixed separators", "a\\b/c", "a/b/c"},
		{"traversal in the middle", "a/../../b.txt", "a/b.txt"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolver_Resolve_Existing(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "file.txt"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := NewResolver(root)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	got, err := r.Resolve("sub/file.txt")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	rootCanonical, _ := filepath.EvalSymlinks(root)
	if !strings.HasPrefix(got, rootCanonical) {
		t.Errorf("Resolve() = %q, не внутри корня %q", got, rootCanonical)
	}
}

func TestResolver_Resolve_NotYetExisting(t *testing.T) {
	root := t.TempDir()
	r, err := NewResolver(root)
	if err != nil {
		t.Fatal(err)
	}

	// Ещё не созданный путь без ".." допускается.
	got, err := r.Resolve("new/dir/file.bin")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != filepath.Join(root, "new", "dir", "file.bin") {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestResolver_Resolve_Traversal(t *testing.T) {
	root := t.TempDir()
	// Соседний файл вне корня, на который нацелен traversal.
	outside := filepath.Join(filepath.Dir(root), "outside.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(outside)

	r, err := NewResolver(root)
	if err != nil {
		t.Fatal(err)
	}

	// Содержимое проверки: для любых вариантов traversal результат
	// либо отклонён, либо остаётся внутри корня.
	inputs := []string{
		"../outside.txt",
		"..\\outside.txt",
		"/etc/passwd",
		"a/../../outside.txt",
		"../../../../etc/passwd",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			got, err := r.Resolve(input)
			if err != nil {
				if !errors.Is(err, ErrTraversal) {
					t.Errorf("Resolve(%q) неожиданная ошибка: %v", input, err)
				}
				return
			}
			if !strings.HasPrefix(got, root) {
				t.Errorf("Resolve(%q) = %q, вышел за пределы %q", input, got, root)
			}
		})
	}
}

func TestResolver_Resolve_SymlinkEscape(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "root")
	target := filepath.Join(base, "target")
	for _, d := range []string{root, target} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(target, "secret.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlink недоступен: %v", err)
	}

	r, err := NewResolver(root)
	if err != nil {
		t.Fatal(err)
	}

	// Существующий путь через symlink наружу отклоняется строгой проверкой.
	if _, err := r.Resolve("link/secret.txt"); !errors.Is(err, ErrTraversal) {
		t.Errorf("Resolve через symlink наружу: error = %v, want ErrTraversal", err)
	}
}

func TestNewResolver_MissingRoot(t *testing.T) {
	if _, err := NewResolver(filepath.Join(t.TempDir(), "нет-такой")); err == nil {
		t.Error("NewResolver() для несуществующего корня должен вернуть ошибку")
	}
}
