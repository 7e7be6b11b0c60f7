package main

import (
	"context"
	"log"
	"net/http"

	"github.com/MartinAltmayer/pokerserver-sub000/internal/auth"
	"github.com/MartinAltmayer/pokerserver-sub000/internal/config"
	"github.com/MartinAltmayer/pokerserver-sub000/internal/gateway"
	"github.com/MartinAltmayer/pokerserver-sub000/internal/lobby"
	"github.com/MartinAltmayer/pokerserver-sub000/internal/store"
)

func main() {
	cfg := config.FromEnv()

	storeService, storeMode, err := store.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[Server] Failed to init store: %v", err)
	}
	defer storeService.Close()
	authService, authMode, err := auth.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[Server] Failed to init auth service: %v", err)
	}
	defer authService.Close()

	lby := lobby.New(store.Stores(storeService), cfg)
	if err := lby.Setup(context.Background()); err != nil {
		log.Fatalf("[Server] Failed to provision tables: %v", err)
	}
	gw := gateway.New(lby, authService)

	mux := http.NewServeMux()
	gw.RegisterRoutes(mux)

	log.Printf("[Server] Store mode: %s", storeMode)
	log.Printf("[Server] Auth mode: %s", authMode)
	log.Printf("[Server] Listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
}
