package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kingsley-usa/nexus/internal/config"
	"github.com/kingsley-usa/nexus/internal/ingest"
	"github.com/kingsley-usa/nexus/internal/repository"
	"github.com/kingsley-usa/nexus/internal/store"
	"github.com/kingsley-usa/nexus/internal/tmdb"
)

func main() {
	pages := flag.Int("pages", 5, "pages to fetch per category")
	threshold := flag.Int64("threshold", 0, "skip the run when the catalog already holds at least this many movies (0 disables the gate)")
	force := flag.Bool("force", false, "run even when the threshold gate would skip")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "[nexus-sync] ", log.LstdFlags)

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

	repo := repository.New(st)

	if *threshold > 0 && !*force {
		count, err := repo.Movies.Count(ctx)
		if err != nil {
			log.Fatalf("count movies: %v", err)
		}
		if count >= *threshold {
			logger.Printf("catalog already holds %d movies (threshold %d), skipping; pass -force to run anyway", count, *threshold)
			return
		}
	}

	client, err := tmdb.NewHTTPClient(cfg.TMDBBaseURL, cfg.TMDBAPIKey,
		time.Duration(cfg.TMDBTimeoutSecs)*time.Second, cfg.TMDBRequestsPerSec, logger)
	if err != nil {
		log.Fatalf("init tmdb client: %v", err)
	}

	job := ingest.New(ingest.NewRepositoryStore(st, repo), client, ingest.Options{Logger: logger})

	started := time.Now()
	summary, err := job.Run(ctx, *pages)
	if err != nil {
		log.Fatalf("sync failed: %v", err)
	}

	logger.Printf("sync finished in %s: created=%d updated=%d skipped=%d",
		time.Since(started).Round(time.Millisecond), summary.Created, summary.Updated, summary.Skipped)
	for category, errs := range summary.CategoryErrors {
		for _, err := range errs {
			logger.Printf("category %s: %v", category, err)
		}
	}
	if summary.HasAbortedCategories() {
		os.Exit(1)
	}
}
