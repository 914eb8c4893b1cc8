// Package safepath отвечает за безопасное разрешение относительных путей
// внутри корневой директории (защита от path traversal).
package safepath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrTraversal - попытка выхода за пределы корневой директории.
var ErrTraversal = errors.New("путь выходит за пределы рабочей директории")

// maxAncestorDepth ограничивает подъём по родительским директориям
// при ручной проверке (защита от бесконечного цикла).
const maxAncestorDepth = 100

// Resolver разрешает относительные пути против одного корня.
type Resolver struct {
	// root - корневая директория как её передал вызывающий.
	root string

	// rootCanonical - каноническая форма корня (symlinks раскрыты).
	rootCanonical string
}

// NewResolver создаёт Resolver для существующей директории root.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить абсолютный путь %s: %w", root, err)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("не удалось канонизировать корень %s: %w", root, err)
	}

	return &Resolver{
		root:          abs,
		rootCanonical: canonical,
	}, nil
}

// Root возвращает корневую директорию.
func (r *Resolver) Root() string {
	return r.root
}

// Sanitize нейтрализует опасные элементы в имени из недоверенного
// источника: убирает ведущие разделители, приводит обратные слэши
// к прямым и выбрасывает все токены "../" и "..\".
// Это нейтрализация, а не отклонение: результат всегда пригоден
// для соединения с корнем.
func Sanitize(name string) string {
	sanitized := strings.TrimLeft(name, "/\\")
	sanitized = strings.ReplaceAll(sanitized, "\\", "/")

	for strings.Contains(sanitized, "../") {
		sanitized = strings.ReplaceAll(sanitized, "../", "")
	}
	for strings.Contains(sanitized, "..\\") {
		sanitized = strings.ReplaceAll(sanitized, "..\\", "")
	}

	return sanitized
}

// Resolve разрешает относительный путь candidate против корня.
//
// Двухуровневая политика:
//  1. для существующих путей - строгая проверка канонической формы
//     на вхождение в канонический корень;
//  2. для ещё не существующих (нормально во время распаковки) -
//     подъём по существующим предкам, а если путь не существует
//     вовсе - синтаксическая проверка на отсутствие "..".
//
// Второй уровень слабее канонического (не ловит traversal через
// symlink-предков, которых он не обошёл) - это известное место,
// сохранено намеренно ради совместимости принятого/отклонённого
// множества путей.
func (r *Resolver) Resolve(candidate string) (string, error) {
	sanitized := Sanitize(candidate)
	joined := filepath.Join(r.root, filepath.FromSlash(sanitized))

	canonical, err := filepath.EvalSymlinks(joined)
	if err == nil {
		if isWithin(canonical, r.rootCanonical) {
			return canonical, nil
		}
		return "", fmt.Errorf("%w: %s (разрешился в %s)", ErrTraversal, candidate, canonical)
	}

	if !os.IsNotExist(err) {
		return "", fmt.Errorf("не удалось разрешить путь %s: %w", candidate, err)
	}

	// Путь ещё не существует: если существует часть пути, проверяем предков.
	if _, statErr := os.Lstat(joined); statErr == nil {
		current := joined
		for depth := 0; depth < maxAncestorDepth; depth++ {
			parent := filepath.Dir(current)
			if parent == current {
				break
			}
			if parent == r.root || isWithin(parent, r.root) {
				return joined, nil
			}
			current = parent
		}
		return "", fmt.Errorf("%w: не удалось подтвердить вхождение %s", ErrTraversal, candidate)
	}

	// Путь не существует вовсе: допускаем только строки без "..".
	if strings.Contains(sanitized, "..") {
		return "", fmt.Errorf("%w: %s", ErrTraversal, candidate)
	}
	return joined, nil
}

// isWithin проверяет, что path находится внутри root (или равен ему).
func isWithin(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
