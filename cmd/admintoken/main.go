// Package main provides back-office utilities for profile moderation.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"heartlink/internal/config"
	"heartlink/internal/database"
	"heartlink/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admintoken mint [ttl]    - Mint a moderation token (default ttl 24h)")
		fmt.Println("  go run ./cmd/admintoken pending       - List profiles waiting for review")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch os.Args[1] {
	case "mint":
		ttl := 24 * time.Hour
		if len(os.Args) > 2 {
			parsed, err := time.ParseDuration(os.Args[2])
			if err != nil {
				log.Fatalf("Invalid ttl %q: %v", os.Args[2], err)
			}
			ttl = parsed
		}
		mintToken(cfg, ttl)

	case "pending":
		db, err := database.Connect(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		listPending(db)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

// mintToken signs a short-lived token accepted by the review endpoints'
// X-Admin-Token check.
func mintToken(cfg *config.Config, ttl time.Duration) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})

	signed, err := token.SignedString([]byte(cfg.AdminJWTSecret))
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Println(signed)
}

func listPending(db *gorm.DB) {
	var users []models.User
	if err := db.Where("status = ?", models.UserStatusPending).
		Order("id ASC").Find(&users).Error; err != nil {
		log.Fatalf("Failed to list pending profiles: %v", err)
	}

	if len(users) == 0 {
		fmt.Println("No profiles waiting for review")
		return
	}

	for _, user := range users {
		fmt.Printf("%d\t%s\t(joined %s)\n", user.ID, user.NickName,
			time.Unix(user.JoinedAt, 0).Format("2006-01-02"))
	}
}
