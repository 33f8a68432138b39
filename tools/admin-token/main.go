package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/V4T54L/reqnotify/internal/adapter/auth"
)

// Mints an admin bearer token accepted by the admin server when
// ADMIN_JWT_SECRET is set.
func main() {
	subject := flag.String("sub", "operator", "Token subject")
	expiry := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		log.Fatal("ADMIN_JWT_SECRET must be set")
	}

	token, err := auth.GenerateToken(*subject, secret, *expiry)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
}
