package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"coopstore/internal/config"
	"coopstore/internal/database"
	"coopstore/internal/models"
	"coopstore/internal/store"
)

func main() {
	addAdminCmd := flag.NewFlagSet("add-admin", flag.ExitOnError)
	name := addAdminCmd.String("name", "", "Display name for the admin")
	email := addAdminCmd.String("email", "", "Email for the admin")
	password := addAdminCmd.String("password", "", "Password for the admin")

	if len(os.Args) < 2 {
		fmt.Println("expected 'add-admin' subcommand")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add-admin":
		addAdminCmd.Parse(os.Args[2:])
		if *name == "" || *email == "" || *password == "" {
			fmt.Println("name, email and password are required")
			addAdminCmd.PrintDefaults()
			os.Exit(1)
		}
		createAdmin(*name, *email, *password)
	default:
		fmt.Println("expected 'add-admin' subcommand")
		os.Exit(1)
	}
}

func createAdmin(name, email, password string) {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(config.AppEnv.DBName)
	// running before the server has ever started still gets the unique email index
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Fatalf("Failed to create user indexes: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user := &models.User{Name: name, Email: email, PasswordHash: string(hash), IsAdmin: true}
	if err := store.New(db).InsertUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			log.Fatalf("A user with email %s already exists", email)
		}
		log.Fatalf("Failed to create admin: %v", err)
	}

	fmt.Printf("Admin '%s' created with id %s.\n", user.Email, user.ID.Hex())
}
