package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Batking74/MyEssentials-Ledger/internal/ledger"
)

func main() {
	fs := ff.NewFlagSet("essentials-ledger")
	var (
		port   = fs.IntLong("port", 8080, "HTTP server port")
		dbPath = fs.StringLong("db", "essentials-ledger.db", "Database file path")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("ESSENTIALS_LEDGER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	slog.Info("Opening database...", "path", *dbPath)
	var db ledger.DB
	db, err := ledger.NewBoltDB(*dbPath)
	if err != nil {
		// Degraded mode: the app still runs, nothing persists.
		slog.Error("Persistent storage unavailable, continuing in memory only",
			"path", *dbPath,
			"error", fmt.Errorf("%w: %v", ledger.ErrStorageUnavailable, err),
		)
		db = ledger.NewMemoryDB()
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	collector := ledger.NewCollector(registry)

	service, err := ledger.NewService(db, collector)
	if err != nil {
		slog.Error("Failed to load collections", "error", err)
		os.Exit(1)
	}

	server := ledger.NewServer(service, ledger.StubCodeSource{}, ledger.MetricsHandler(registry))

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
