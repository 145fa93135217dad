package main

import (
	"github.com/MeKo-Tech/idcheck/cmd/idcheck/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()
	cmd.Execute()
}
