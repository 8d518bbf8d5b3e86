// Command corrdash serves a dashboard backend for exploring recorded
// vehicle-drive signal logs: drive upload, preprocessing, path
// reconstruction, and trajectory similarity.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/corrdash/corrdash/internal/api"
	"github.com/corrdash/corrdash/internal/db"
	"github.com/corrdash/corrdash/internal/monitoring"
	"github.com/corrdash/corrdash/internal/units"
	"github.com/corrdash/corrdash/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbPath     = flag.String("db", "corrdash.db", "Path to the sqlite database")
	speedUnits = flag.String("units", units.MPS, "Display unit for speeds (mps, mph, kmph, kph)")
	devMode    = flag.Bool("dev", false, "Run in dev mode (verbose logging)")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValidSpeedUnit(*speedUnits) {
		log.Fatalf("invalid units %q (valid: mps, mph, kmph, kph)", *speedUnits)
	}
	monitoring.Verbose = *devMode

	log.Printf("corrdash %s (%s)", version.Version, version.GitSHA)

	database, err := db.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/", api.LoggingMiddleware(api.NewServer(database, *speedUnits, nil).ServeMux()))

	// Debug SQL browser and backup endpoint under /debug/.
	if err := database.AttachDebugger(mux); err != nil {
		log.Fatalf("Failed to attach debug routes: %v", err)
	}

	server := &http.Server{
		Addr:    *listen,
		Handler: mux,
	}

	go func() {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}
