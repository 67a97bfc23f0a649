package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/arencloud/sitebucket/internal/api"
	"github.com/arencloud/sitebucket/internal/config"
	"github.com/arencloud/sitebucket/internal/db"
	"github.com/arencloud/sitebucket/internal/logging"
	"github.com/arencloud/sitebucket/internal/middleware"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)

	if err := db.Init(cfg, logger); err != nil {
		logger.Fatal("failed to init db", "error", err)
	}

	r := api.Router(cfg, logger, nil)

	srv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           middleware.Recoverer(r, logger),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB headers
	}
	logger.Info("server starting", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Println("server error:", err)
		os.Exit(1)
	}
}
