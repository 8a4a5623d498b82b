// Dev helper: creates the schema for a fresh local database. Production
// schema changes go through goose migrations instead.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"plantbid.kr/app/internal/http/middleware"
	"plantbid.kr/app/internal/modules/bids"
	"plantbid.kr/app/internal/modules/orders"
	"plantbid.kr/app/internal/modules/payments"
	"plantbid.kr/app/internal/modules/users"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&users.User{},
		&middleware.Session{},
		&bids.Bid{},
		&orders.Order{},
		&payments.Payment{},
		&payments.PaymentEvent{},
		&payments.CancelAttempt{},
	); err != nil {
		log.Fatalf("Failed to migrate tables: %v", err)
	}

	log.Println("Tables created successfully")
}
