package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/mockview/mockview/cmd"
)

func main() {
	// A missing .env file is fine, configuration may come from flags or YAML.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
