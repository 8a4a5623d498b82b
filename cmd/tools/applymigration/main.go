// One-off migration: adds the cancellation audit columns to payments
// tables created before the reconciliation subsystem existed.
package main

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
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

	addCol := func(sql string) {
		if err := db.Exec(sql).Error; err != nil {
			// 1060: duplicate column; the migration already ran.
			if !strings.Contains(err.Error(), "Error 1060") {
				log.Fatalf("Failed: %v", err)
			}
		}
	}

	addCol(`ALTER TABLE payments ADD COLUMN cancel_reason VARCHAR(255) NULL AFTER method`)
	addCol(`ALTER TABLE payments ADD COLUMN cancelled_at DATETIME(3) NULL AFTER cancel_reason`)
	addCol(`ALTER TABLE payments ADD COLUMN merchant_uid VARCHAR(64) NOT NULL DEFAULT '' AFTER payment_key`)

	log.Println("Migration applied")
}
