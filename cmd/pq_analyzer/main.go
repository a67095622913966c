package main

import (
	"os"

	"github.com/user/pq_analyzer_go/cmd/pq_analyzer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
