// Package hashing отвечает за потоковое хэширование содержимого файлов.
package hashing

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// SHA512File вычисляет sha512 хэш файла потоково, не загружая
// содержимое в память целиком. Хэш используется как ключ дедупликации.
func SHA512File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("не удалось открыть файл для хэширования %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("не удалось прочитать файл для хэширования %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
