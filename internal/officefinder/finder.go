// Package officefinder отвечает за поиск бинарника LibreOffice (soffice)
// в системе.
package officefinder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Info содержит информацию о найденном LibreOffice.
type Info struct {
	// Path - абсолютный путь к бинарнику soffice.
	Path string

	// Version - версия LibreOffice (например, "24.8.2.1").
	Version string
}

// Finder ищет бинарник soffice.
type Finder struct {
	// CustomPath - пользовательский путь к soffice (из флага --soffice).
	CustomPath string

	// EnvVar - имя переменной окружения для пути к soffice.
	EnvVar string
}

// NewFinder создаёт новый Finder.
func NewFinder(customPath string) *Finder {
	return &Finder{
		CustomPath: customPath,
		EnvVar:     "LLMPREP_SOFFICE",
	}
}

// Find ищет soffice в следующем порядке:
// 1. CustomPath (если задан)
// 2. Переменная окружения LLMPREP_SOFFICE
// 3. PATH
// 4. Стандартные пути установки для текущей ОС
func (f *Finder) Find() (*Info, error) {
	var candidates []string

	if f.CustomPath != "" {
		candidates = append(candidates, f.CustomPath)
	}

	if envPath := os.Getenv(f.EnvVar); envPath != "" {
		candidates = append(candidates, envPath)
	}

	if pathSoffice, err := exec.LookPath(binaryName()); err == nil {
		candidates = append(candidates, pathSoffice)
	}

	candidates = append(candidates, wellKnownPaths()...)

	for _, path := range candidates {
		if info, err := f.check(path); err == nil {
			return info, nil
		}
	}

	return nil, fmt.Errorf("LibreOffice не найден. Проверьте:\n"+
		"  1. Установлен ли LibreOffice (apt install libreoffice / brew install libreoffice)\n"+
		"  2. Установлена ли переменная окружения %s\n"+
		"  3. Указан ли путь через флаг --soffice", f.EnvVar)
}

// check проверяет, является ли путь рабочим soffice.
func (f *Finder) check(path string) (*Info, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("файл не найден: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить абсолютный путь: %w", err)
	}

	cmd := exec.Command(absPath, "--version")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("не удалось выполнить soffice --version: %w", err)
	}

	return &Info{
		Path:    absPath,
		Version: parseVersion(string(output)),
	}, nil
}

// parseVersion извлекает версию из вывода "soffice --version".
// Пример вывода: "LibreOffice 24.8.2.1 broffice12af..."
func parseVersion(output string) string {
	output = strings.TrimSpace(output)

	fields := strings.Fields(output)
	if len(fields) >= 2 && strings.EqualFold(fields[0], "LibreOffice") {
		return fields[1]
	}

	return output
}

// binaryName возвращает имя бинарника soffice для текущей ОС.
func binaryName() string {
	if runtime.GOOS == "windows" {
		return "soffice.exe"
	}
	return "soffice"
}

// wellKnownPaths возвращает стандартные пути установки LibreOffice.
func wellKnownPaths() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\Program Files\LibreOffice\program\soffice.exe`,
			`C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
		}
	case "darwin":
		return []string{
			"/Applications/LibreOffice.app/Contents/MacOS/soffice",
		}
	default:
		return []string{
			"/usr/bin/soffice",
			"/usr/local/bin/soffice",
		}
	}
}

/*
Возможные расширения:
- Кэширование результата поиска
- Проверка минимальной версии LibreOffice
*/
