// Provisions an administrator account. Self-registration only creates
// student and faculty accounts.
// cmd/create-admin/main.go
package main

import (
	"context"
	"flag"
	"log"

	"research-repository-api/config"
	"research-repository-api/services"
	"research-repository-api/store"

	"github.com/joho/godotenv"
)

// adminAccount is the account to provision, as given on the command line.
type adminAccount struct {
	Name     string
	Email    string
	Password string
}

// withDefaults fills fields left empty on the command line from settings,
// which already include .env and the environment.
func (a adminAccount) withDefaults(settings config.Settings) adminAccount {
	if a.Name == "" {
		a.Name = settings.AdminName
	}
	if a.Email == "" {
		a.Email = settings.AdminEmail
	}
	if a.Password == "" {
		a.Password = settings.AdminPassword
	}
	return a
}

func main() {
	var account adminAccount
	flag.StringVar(&account.Name, "name", "", "display name, defaults to $ADMIN_NAME")
	flag.StringVar(&account.Email, "email", "", "admin email, defaults to $ADMIN_EMAIL")
	flag.StringVar(&account.Password, "password", "", "admin password, defaults to $ADMIN_PASSWORD")
	flag.Parse()

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	settings, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	account = account.withDefaults(settings)
	if settings.DBDriver == "memory" {
		log.Fatal("create-admin needs a SQL database, DB_DRIVER is memory")
	}

	// Initialize database
	db, err := config.InitDB(settings)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	gormStore := store.NewGormStore(db)
	if err := gormStore.Migrate(); err != nil {
		log.Fatal(err)
	}

	auth, err := services.NewAuthService(gormStore, services.TokenConfig{Secret: []byte(settings.JWTSecret)})
	if err != nil {
		log.Fatal(err)
	}

	user, err := auth.CreateAdmin(context.Background(), account.Name, account.Email, account.Password)
	if err != nil {
		log.Fatal("Failed to create admin: ", err)
	}

	log.Printf("Admin %s created with id %d\n", user.Email, user.ID)
}
