// Operator CLI: verifies the PortOne credentials and optionally fires a
// manual cancellation against a payment id, without going through the web
// app. Useful when reconciling a stuck payment from a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"plantbid.kr/app/internal/modules/payments"
)

func main() {
	paymentID := flag.String("cancel", "", "Payment id to cancel (empty = connection test only)")
	orderID := flag.String("order", "", "Order id used to search for the canonical payment id")
	reason := flag.String("reason", "운영자 수동 취소", "Cancellation reason")
	dryRun := flag.Bool("dry-run", false, "Resolve and print the id, don't cancel")

	flag.Parse()
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := payments.ConfigFromEnv()
	client := payments.NewPortOneClient(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ok, msg := client.TestConnection(ctx)
	fmt.Printf("connection: ok=%v msg=%s\n", ok, msg)
	if !ok {
		os.Exit(1)
	}

	if *paymentID == "" && *orderID == "" {
		return
	}

	id := *paymentID
	if *orderID != "" {
		res, err := client.SearchPayments(ctx, payments.SearchParams{OrderID: *orderID, Size: 1})
		if err != nil {
			fmt.Fprintf(os.Stderr, "search failed: %v\n", err)
			os.Exit(1)
		}
		if len(res.Items) == 0 {
			fmt.Fprintf(os.Stderr, "no payment found for order %s\n", *orderID)
			os.Exit(1)
		}
		id = res.Items[0].ID
		fmt.Printf("resolved payment id: %s (status=%s)\n", id, res.Items[0].Status)
	}

	if !payments.IsValidPortoneV2ID(id) {
		converted := payments.ConvertToV2PaymentID(id)
		fmt.Printf("normalizing id: %s -> %s\n", id, converted)
		id = converted
	}

	if *dryRun {
		fmt.Println("[dry-run] not cancelling")
		return
	}

	resp, err := client.CancelPayment(ctx, payments.CancelParams{PaymentID: id, Reason: *reason})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cancel failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("cancelled: id=%s status=%s\n", resp.CancelledID, resp.Status)
}
