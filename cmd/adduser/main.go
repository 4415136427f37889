// cmd/adduser/main.go
// Creates or updates a user in the database.
//
// Usage:
//
//	go run ./cmd/adduser -username marta -password testing [-admin]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/padraicbc/rallyapi/config"
	bundb "github.com/padraicbc/rallyapi/db"
	"github.com/padraicbc/rallyapi/handlers"
	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/store"
)

func main() {
	username := flag.String("username", "", "username (required)")
	password := flag.String("password", "", "plain-text password (required)")
	admin := flag.Bool("admin", false, "allow the user to trigger recalculation")
	flag.Parse()

	hash, err := handlers.HashPasswordForUser(*username, *password)
	if err != nil {
		log.Fatal(err)
	}

	cfg := config.Load()
	db := bundb.Setup(cfg)
	defer db.Close()

	if err := bundb.CreateTables(context.Background(), db); err != nil {
		log.Fatal("create tables:", err)
	}

	user := &models.User{
		Username: *username,
		Password: hash,
		IsAdmin:  *admin,
	}
	if err := store.New(db).SaveUser(context.Background(), user); err != nil {
		log.Fatal("save user:", err)
	}

	fmt.Printf("user %q saved\n", *username)
}
