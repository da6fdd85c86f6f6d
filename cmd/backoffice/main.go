package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/insurezeal/backoffice/internal/service"
	"github.com/insurezeal/backoffice/internal/utils/logger"
)

func main() {
	// a missing .env is fine, the real environment wins
	_ = godotenv.Load()

	log := logger.New(logger.ParseLevel(os.Getenv("LOG_LEVEL")))
	slog.SetDefault(log)

	service.RunServer()
}
