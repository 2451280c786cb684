// Command adduser creates a login for the disaster reports service.
//
//	adduser -username alice -password s3cret
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mr1hm/go-disaster-reports/internal/auth"
	"github.com/mr1hm/go-disaster-reports/internal/config"
	"github.com/mr1hm/go-disaster-reports/internal/logging"
	"github.com/mr1hm/go-disaster-reports/internal/repository"
)

func main() {
	username := flag.String("username", "", "username to create")
	password := flag.String("password", os.Getenv("ADDUSER_PASSWORD"), "password (defaults to $ADDUSER_PASSWORD)")
	flag.Parse()

	if *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	db, err := repository.Open(cfg.DB.Driver, cfg.DB.Path, cfg.DB.URL)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gate := auth.NewGate(db, auth.Options{BcryptCost: cfg.Auth.BcryptCost})
	user, err := gate.Register(ctx, *username, *password)
	switch {
	case errors.Is(err, repository.ErrDuplicateUsername):
		slog.Info("user already exists", "username", *username)
		return
	case err != nil:
		slog.Error("failed to create user", "error", err)
		os.Exit(1)
	}

	fmt.Printf("created user %q (id %d)\n", user.Username, user.ID)
}
