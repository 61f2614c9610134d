package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	handler "github.com/xiaot623/gogo/tutor/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.log.Info("starting tutor",
		"http_port", a.cfg.HTTPPort,
		"database", a.cfg.DatabaseURL,
		"llm_provider", a.cfg.LLMProvider,
		"cms_enabled", a.cfg.CMSBaseURL != "",
		"auth_disabled", a.cfg.AuthDisabled,
	)

	server := handler.NewServer(a.svc, a.cfg, a.log)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	a.log.Info("shutting down tutor")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("failed to shutdown server gracefully", "error", err)
	}

	a.log.Info("tutor stopped")
	return nil
}
