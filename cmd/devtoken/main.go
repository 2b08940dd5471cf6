// Command devtoken mints a bearer token for local testing against the server.
//
//	JWT_SECRET=dev go run ./cmd/devtoken -user alice
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mmynk/tripmatch/internal/auth"
	"github.com/mmynk/tripmatch/internal/config"
	"github.com/mmynk/tripmatch/pkg/logging"
)

func main() {
	logging.Setup()

	userID := flag.String("user", "", "user id to put in the token")
	name := flag.String("name", "", "optional display name")
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL).Generate(*userID, *name)
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
