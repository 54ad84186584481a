package main

import (
	"os"

	"github.com/voxkit/phraseprint/cmd/phraseprint/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
