package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/mandrill-gateway/internal/api"
	"github.com/ignite/mandrill-gateway/internal/config"
	"github.com/ignite/mandrill-gateway/internal/deliverylog"
	"github.com/ignite/mandrill-gateway/internal/gateway"
	"github.com/ignite/mandrill-gateway/internal/pkg/logger"
	"github.com/ignite/mandrill-gateway/internal/sendtemplate"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %w", addr, err)
	}
	return ln.Close()
}

func main() {
	configPath := "config/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	registry, err := gateway.NewRegistry(cfg.Mandrill)
	if err != nil {
		log.Fatalf("Invalid mandrill config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	recorder, closeLog, err := deliverylog.Open(ctx, cfg.DeliveryLog)
	cancel()
	if err != nil {
		log.Fatalf("Failed to open delivery log: %v", err)
	}
	defer closeLog()

	// Not every recorder can be listed; /api/sends answers 501 without one.
	lister, _ := recorder.(deliverylog.Lister)

	sender := sendtemplate.NewSender(registry, sendtemplate.WithRecorder(recorder))
	server := api.NewServer(cfg.Server, api.NewHandlers(sender, lister))

	addr := cfg.Server.Addr()
	if err := checkPortAvailable(addr); err != nil {
		log.Fatalf("%v", err)
	}

	logger.Info("server: starting",
		"addr", addr,
		"gateway", registry.Name(),
		"environment", registry.Environment(),
		"delivery_log", cfg.DeliveryLog.Type,
	)
	if cfg.Server.AdminToken == "" {
		logger.Warn("server: admin_token is not set; POST /api/gateway/environment is unauthenticated")
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	logger.Info("server: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server: shutdown failed", "error", err)
	}
	logger.Info("server: stopped")
}
