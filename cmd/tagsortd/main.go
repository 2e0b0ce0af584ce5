package main

import (
	"os"

	"tagsortd/internal/log"
)

var (
	version = "dev"
)

// Entry point for the application
func main() {
	err := newRootCmd().Execute()
	if err != nil {
		log.LogError(err, "tagsortd failed")
	}
	log.Default().Close()
	if err != nil {
		os.Exit(1)
	}
}
