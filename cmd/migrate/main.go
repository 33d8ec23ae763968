package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"gosip/adapters/sqlstore"
	"gosip/internal/config"
	"gosip/internal/migration"
)

// Applies the result store schema to DATABASE_URL, or to the driver and
// url given as arguments
func main() {
	_ = godotenv.Load()

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	driver, url := appConfig.Database.Driver, appConfig.Database.URL
	if len(os.Args) == 3 {
		driver, url = os.Args[1], os.Args[2]
	} else if len(os.Args) != 1 {
		log.Fatal("Usage: migrate [<driver> <database_url>]")
	}

	log.Printf("Applying schema %s to %s database", migration.NewRunner().Version(), driver)
	db, err := sqlstore.Open(context.Background(), driver, url)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	defer db.Close()
	log.Println("✅ Schema up to date")
}
