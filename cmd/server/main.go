package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kingsley-usa/nexus/internal/auth"
	"github.com/kingsley-usa/nexus/internal/cache"
	"github.com/kingsley-usa/nexus/internal/config"
	httpserver "github.com/kingsley-usa/nexus/internal/http"
	"github.com/kingsley-usa/nexus/internal/mailer"
	"github.com/kingsley-usa/nexus/internal/repository"
	"github.com/kingsley-usa/nexus/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "[nexus-api] ", log.LstdFlags|log.Lshortfile)

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:        int32(cfg.DBMaxConns),
		MinConns:        int32(cfg.DBMinConns),
		MaxConnIdleTime: time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime: time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:     time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		Logger:          logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer st.Close()

	if err := store.Migrate(dbCtx, st.Pool(), "db/migrations"); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	kv, err := cache.NewRedisKV(dbCtx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer kv.Close()

	repo := repository.New(st)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour)
	mail := mailer.NewDispatcher(&mailer.LogMailer{Logger: logger}, logger, 0, 0)
	responseCache := cache.New(kv, logger)

	server := httpserver.New(cfg, st, repo, responseCache, tokens, mail, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			log.Printf("server error: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("graceful shutdown error: %v", err)
	}
	mail.Wait()
}
