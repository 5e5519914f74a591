package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/mreide/reviewd/internal/cli"
)

func main() {
	// Missing .env is fine; environment variables still apply.
	_ = godotenv.Load()
	os.Exit(cli.Run())
}
