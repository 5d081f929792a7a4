package main

import (
	"Conspiracy/config"
	_ "Conspiracy/config/swagger"
	"Conspiracy/middleware"
	"Conspiracy/routes"
	"Conspiracy/services/cleanup"
	"Conspiracy/services/rooms"
	"Conspiracy/services/socket_io"
	socketio_types "Conspiracy/services/socket_io/types"
	"Conspiracy/utils"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

// @title Canvas Conspiracy Rooms API
// @version 1.0
// @description Gin-Gonic server for the room lifecycle of "Canvas Conspiracy"
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	config.SetupLogger(cfg)
	logrus.Info("Setting up server...")

	if cfg.Prod {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, closeStore, err := config.ConnectStore(cfg)
	if err != nil {
		logrus.Fatalf("Error connecting to the %s room store: %v", cfg.RoomStore, err)
	}
	defer closeStore()

	scheduler := cleanup.NewScheduler(repo, cfg.Cleanup)
	sio := socketio_types.NewSocketServer()
	registry := rooms.NewRegistry(repo, scheduler, sio, cfg.Policy)

	r := gin.New()
	r.Use(gin.Recovery(), utils.Logger())

	middleware.SetUpMiddleware(r, cfg.SessionKey, cfg.UseHTTPS, cfg.AllowedOrigins())

	(*socket_io.MySocketServer)(sio).Start(r, registry, cfg.AllowedOrigins())

	routes.SetupRoutes(r, registry, scheduler, cfg.AdminJWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		logrus.WithFields(logrus.Fields{"port": cfg.Port, "https": cfg.UseHTTPS}).Info("Server started")
		var err error
		if cfg.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server did not shut down cleanly")
	}
	if err := scheduler.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Final cleanup sweep failed")
	}
	sio.Close()
	logrus.Info("Server stopped")
}
