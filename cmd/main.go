// job-monitor service
//
// Periodically fetches company careers pages, extracts job-posting links,
// diffs them against previously observed state and alerts subscribers about
// new postings. Exposes a /health endpoint; everything else runs on a cron
// schedule.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsrothwell/job-monitor-sub000/internal/config"
	"github.com/jsrothwell/job-monitor-sub000/internal/db"
	"github.com/jsrothwell/job-monitor-sub000/internal/extract"
	"github.com/jsrothwell/job-monitor-sub000/internal/fetch"
	"github.com/jsrothwell/job-monitor-sub000/internal/monitor"
	"github.com/jsrothwell/job-monitor-sub000/internal/notify"
	"github.com/jsrothwell/job-monitor-sub000/internal/scheduler"
	"github.com/jsrothwell/job-monitor-sub000/internal/scrape"
	"github.com/jsrothwell/job-monitor-sub000/internal/store"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[job-monitor] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[job-monitor] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[job-monitor] PostgreSQL: %v", err)
	}
	defer pool.Close()

	jobStore := store.NewPostgres(pool)
	if err := jobStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("[job-monitor] Schema: %v", err)
	}
	log.Println("[job-monitor] PostgreSQL connected ✓")

	// ── Notifier ─────────────────────────────────────────────────────────────
	notifier := buildNotifier(ctx, cfg)

	// ── Pipeline ─────────────────────────────────────────────────────────────
	fetcher := fetch.New(cfg.MaxRedirects)
	extractor := extract.New(extract.Options{
		SimilarityThreshold: cfg.SimilarityThreshold,
		LadderMinCandidates: cfg.LadderMinCandidates,
	})
	orchestrator := scrape.New(fetcher, extractor, jobStore)
	runner := monitor.NewRunner(orchestrator, notifier)

	budgets := monitor.Budgets{
		Total:      cfg.TotalBudget,
		PerCompany: cfg.PerCompanyBudget,
		Pause:      cfg.InterCompanyPause,
	}

	sched := scheduler.New(jobStore, runner, budgets, cfg.IntervalHours)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[job-monitor] Scheduler: %v", err)
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[job-monitor] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[job-monitor] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[job-monitor] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[job-monitor] Shutdown error: %v", err)
	}
	log.Println("[job-monitor] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "job-monitor",
		"version": version,
	})
}

// buildNotifier assembles the alert chain: Telegram wrapped in a Redis
// cooldown when both are configured, Telegram alone when only the bot is,
// nil otherwise (scraping still runs; alerts are simply not sent).
func buildNotifier(ctx context.Context, cfg *config.Config) monitor.Notifier {
	if cfg.TelegramToken == "" {
		log.Println("[job-monitor] TELEGRAM_BOT_TOKEN not set — alerting disabled")
		return nil
	}

	tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Printf("[job-monitor] Telegram init failed (%v) — alerting disabled", err)
		return nil
	}

	if cfg.RedisURL == "" {
		return tg
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("[job-monitor] Redis unavailable (%v) — alert cooldown disabled", err)
		return tg
	}
	log.Println("[job-monitor] Redis connected ✓")
	return notify.NewCooldown(rdb, tg, 0)
}
