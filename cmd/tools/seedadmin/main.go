package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/marisol/artist-grants/internal/auth"
	"github.com/marisol/artist-grants/internal/db"
)

// Creates an admin account. The password comes from ADMIN_PASSWORD so it
// never lands in shell history.
func main() {
	var (
		email = flag.String("email", "", "admin email")
		name  = flag.String("name", "", "display name")
	)
	flag.Parse()

	if *email == "" {
		fmt.Println("Provide -email")
		os.Exit(1)
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		fmt.Println("Missing ADMIN_PASSWORD environment variable")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	admin, err := store.CreateAdmin(ctx, *email, *name, hash)
	if err == db.ErrDuplicate {
		log.Fatalf("An admin with email %s already exists", *email)
	}
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	fmt.Printf("Created admin %s (%s)\n", admin.Email, admin.ID)
}
