package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/kailas-cloud/ragdex/internal/cli"
)

func main() {
	// Best effort: a missing .env just means plain process env.
	_ = godotenv.Load()

	os.Exit(cli.Execute())
}
