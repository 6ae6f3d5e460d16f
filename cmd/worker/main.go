package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"evote/internal/app/bootstrap"
)

// Worker process entrypoint.
// Data flow:
// 1) Load .env and config.
// 2) Build app wiring.
// 3) Start schedulers (outbox relay, ledger catchup).
func main() {
	_ = godotenv.Load()

	log.Println("evote worker starting")
	app, err := bootstrap.BuildWorker()
	if err != nil {
		log.Fatalf("bootstrap worker failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("worker shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("evote worker stopped with error: %v", err)
	}
}
