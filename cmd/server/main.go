package main

import (
	"context"
	"fmt"
	"log"

	"chathub/internal/api"
	"chathub/internal/auth"
	"chathub/internal/config"
	"chathub/internal/hub"
	"chathub/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := storage.Connect(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	chatHub, handle := hub.New()
	go chatHub.Run(context.Background())

	tokens := auth.NewTokens(cfg.JWTSecret)

	r := gin.Default()
	router := api.NewRouter(db, handle, hub.NewIDAllocator(), tokens)
	router.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Printf("listening on %s", addr)
	log.Fatal(r.Run(addr))
}
