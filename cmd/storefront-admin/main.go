// Command storefront-admin creates or promotes administrator accounts from the
// command line. There is no HTTP route that can create an admin.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
)

func main() {
	username := flag.String("username", "", "admin username")
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password (defaults to $ADMIN_PASSWORD)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")

	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}
	if *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	svc := &service.AuthService{Repo: &repo.GormRepo{DB: gdb}}
	created, err := svc.ProvisionAdmin(ctx, *username, *email, *password)
	if err != nil {
		log.Fatalf("provision admin: %v", err)
	}
	if created {
		fmt.Printf("admin %q created\n", *username)
		return
	}
	fmt.Printf("admin %q updated\n", *username)
}
