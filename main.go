package main

import (
	"os"

	"github.com/Dzen-J/multi-agent-LLM-interviewer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
