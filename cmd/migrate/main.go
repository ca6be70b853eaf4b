package main

import (
	"flag"
	"fmt"
	"log"

	"blockconnect/pkg/config"
	"blockconnect/pkg/database"

	"github.com/pressly/goose/v3"
)

func main() {
	var (
		dir     = flag.String("dir", "pkg/database/migrations", "directory for new migration files")
		command = flag.String("command", "up", "migration command (up, down, status, reset, create)")
		name    = flag.String("name", "", "name for new migration (used with create command)")
	)
	flag.Parse()

	if *command == "create" {
		if *name == "" {
			log.Fatal("Name is required for create command")
		}
		goose.SetSequential(true)
		if err := goose.Create(nil, *dir, *name, "sql"); err != nil {
			log.Fatalf("Failed to create migration: %v", err)
		}
		fmt.Printf("Created migration: %s\n", *name)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := database.Migrate(cfg, *command); err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Printf("Migration %s finished\n", *command)
}
