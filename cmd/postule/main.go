package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A .env next to the binary may hold SMTP credentials that the config
	// file references as ${VAR}.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
