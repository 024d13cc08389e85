package main

import (
	"os"

	"go-restaurant-pos/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
