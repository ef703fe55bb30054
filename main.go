package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"kamuy/config"
	"kamuy/database"
	"kamuy/handlers"
	"kamuy/live"
	"kamuy/logger"
	"kamuy/routes"
	"kamuy/store"
	"kamuy/websocket"
)

func main() {
	log := logger.L()
	log.Info("starting kamuy server")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("loading configuration", "err", err)
	}

	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Mongo can take a moment to come up alongside the server, so retry
	// the initial connection a few times before giving up.
	var client *mongo.Client
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err = database.Connect(ctx, cfg.MongoURI)
		cancel()
		if err == nil {
			break
		}
		log.Warnw("mongodb connection failed", "attempt", attempt, "err", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalw("connecting to mongodb", "err", err)
	}
	log.Info("mongodb connected")

	st := store.New(client, cfg.MongoDB)

	idxCtx, idxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureIndexes(idxCtx, st.Database()); err != nil {
		idxCancel()
		log.Fatalw("ensuring indexes", "err", err)
	}
	idxCancel()

	manager := websocket.NewManager()
	go manager.Start()

	watchCtx, stopWatcher := context.WithCancel(context.Background())
	live.NewWatcher(st.Database(), manager).Run(watchCtx)

	h := handlers.New(cfg, st, manager)
	router := routes.SetupRouter(cfg, h, manager)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server error", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	stopWatcher()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("forced shutdown", "err", err)
	}

	if err := database.Disconnect(client); err != nil {
		log.Errorw("disconnecting mongodb", "err", err)
	}
	log.Info("server stopped")
}
