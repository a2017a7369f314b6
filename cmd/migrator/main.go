package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/dawamr/dramabox-astro/database"
)

// Standalone schema migration, for deploys where the server user has no DDL
// rights and migrations run as a separate step.
func main() {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using env vars")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatal("Failed to connect:", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("Migration failed:", err)
	}
	log.Println("Migration complete")
}
