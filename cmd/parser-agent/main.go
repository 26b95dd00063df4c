package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"

	"parser-agent/internal/cli"
)

func main() {
	// API keys usually come from .env; the file itself is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Fatal Error: could not load .env file: %v", err)
	}

	cli.Execute()
}
