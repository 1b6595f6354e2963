package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"eventreg_app/internal/services"
)

// Creates a PIX charge for an installment and prints the copy-paste code.
// Useful for checking provider credentials or the simulated mode end to end.
func main() {
	installmentID := flag.Uint("installment", 0, "Installment ID to charge")
	amountStr := flag.String("amount", "", "Charge amount (optional, defaults to the outstanding balance)")
	flag.Parse()

	if *installmentID == 0 {
		log.Fatal("Please provide an installment ID using -installment flag")
	}

	// Load envs
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	db, err := services.InitDB(dsn)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}

	amount := decimal.Zero
	if *amountStr != "" {
		amount, err = decimal.NewFromString(*amountStr)
		if err != nil {
			log.Fatalf("Invalid amount: %v", err)
		}
	}

	service := services.NewPIXService(db, services.NewBillingService(db, nil))
	if service.Simulated() {
		log.Println("PIX_API_KEY not set, running in simulated mode")
	}

	charge, err := service.CreateCharge(context.Background(), *installmentID, amount)
	if err != nil {
		log.Fatalf("Failed to create charge: %v", err)
	}

	log.Printf("Charge created: txid=%s amount=%s expires=%s", charge.TxID, charge.Amount.StringFixed(2), charge.ExpiresAt)
	log.Printf("Copy-paste code: %s", charge.CopyPasteCode)
}
