// Command server runs the HTTP server exposing the health probes and the
// internal cron trigger endpoints.
package main

import (
	"context"
	"log"

	"github.com/quillshelf/backend/internal/app"
)

func main() {
	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
