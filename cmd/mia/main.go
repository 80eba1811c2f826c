package main

import (
	"os"

	"github.com/imacat/mia-accounting-django-sub000/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
