package main

import (
	"os"

	"github.com/abduss/bugtrack/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	os.Exit(cli.Execute())
}
