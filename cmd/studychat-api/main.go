package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/PabloGalante/studychat/internal/adapters/http"
	"github.com/PabloGalante/studychat/internal/adapters/llm"
	"github.com/PabloGalante/studychat/internal/adapters/storage"
	memstore "github.com/PabloGalante/studychat/internal/adapters/storage/memory"
	"github.com/PabloGalante/studychat/internal/app/conversation"
	"github.com/PabloGalante/studychat/internal/app/settings"
	"github.com/PabloGalante/studychat/internal/config"
	"github.com/PabloGalante/studychat/internal/observability"
)

func main() {
	if err := run(); err != nil {
		observability.Logger().Error("studychat api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.SetLevel(cfg.LogLevel)
	log := observability.Logger()

	policy, err := llm.ParsePolicy(cfg.ReplyPolicy)
	if err != nil {
		return err
	}
	log.Info("reply generator ready", "policy", policy)
	replies := llm.NewCannedResponder(policy, nil, nil)

	settingsStore, closeSettings, err := storage.OpenSettings(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSettings()

	sessions := memstore.NewSessionStore()
	convSvc := conversation.NewService(replies, sessions, conversation.Options{
		Delay: &conversation.DelayRange{Min: cfg.ReplyDelayMin, Max: cfg.ReplyDelayMax},
	})
	settingsSvc := settings.NewService(settingsStore)

	handler := httpadapter.NewServer(convSvc, settingsSvc, httpadapter.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		MessageRPS:    cfg.MessageRPS,
		MessageBurst:  cfg.MessageBurst,
		MaxUpload:     cfg.MaxUploadBytes,
		Metrics:       cfg.Metrics,
	})
	defer handler.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Ending the sessions closes their event streams so Shutdown can drain.
	srv.RegisterOnShutdown(func() {
		closed := convSvc.EndAll(context.Background())
		log.Info("sessions closed", "count", closed)
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("studychat api listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}
	return nil
}
