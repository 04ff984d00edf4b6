package main

import (
	"os"

	"github.com/CrowderSoup/kanban-board/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
