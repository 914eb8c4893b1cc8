// llmprep - CLI утилита для подготовки пакетов документов к загрузке в LLM.
package main

import "github.com/artemshloyda/llmprep/internal/cli"

func main() {
	cli.Execute()
}
