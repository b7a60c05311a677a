/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-13 20:15:40
 * @FilePath: \seo-assistant\cmd\server\main.go
 * @LastEditTime: 2025-10-14 09:05:22
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seo-assistant/internal/app"
	"seo-assistant/internal/bootstrap"
	appLogger "seo-assistant/internal/infra/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if _, err := appLogger.Init(); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer appLogger.Sync()

	resources, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer func() {
		if err := resources.Close(); err != nil {
			log.Printf("resource cleanup error: %v", err)
		}
	}()

	application, err := bootstrap.BuildApplication(appLogger.S(), resources)
	if err != nil {
		log.Fatalf("build application failed: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + resources.Flags.Port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	app.WithShutdown(ctx, stop, func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			appLogger.S().Infow("http server starting", "addr", srv.Addr, "mode", resources.Flags.Mode)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		appLogger.S().Infow("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
}
