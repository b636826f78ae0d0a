package main

import (
	"os"

	"github.com/tobin4900/ai-resume-matcher/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
