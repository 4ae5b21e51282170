// Command backfill periodically pulls listings for a configured set of zip
// codes and archives them to Postgres, so market trends have depth beyond
// whatever the dashboard scraped most recently.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourorg/flipdash/harvest"
	"github.com/yourorg/flipdash/internal/env"
	"github.com/yourorg/flipdash/internal/events"
	"github.com/yourorg/flipdash/internal/ingest"
	"github.com/yourorg/flipdash/internal/store"
)

func main() {
	_ = godotenv.Load()

	apiKey := env.Must("LISTING_API_KEY")
	dsn := env.Must("DATABASE_URL")

	zips := splitList(os.Getenv("BACKFILL_ZIPS"))
	if len(zips) == 0 {
		log.Fatal("BACKFILL_ZIPS must be provided")
	}

	interval := parseDuration(os.Getenv("BACKFILL_INTERVAL"), 6*time.Hour)
	pause := parseDuration(os.Getenv("BACKFILL_PAUSE"), 1500*time.Millisecond)
	requestTimeout := parseDuration(os.Getenv("BACKFILL_REQUEST_TIMEOUT"), 12*time.Second)
	limit := env.GetInt("BACKFILL_LIMIT", 50)
	maxPrice := float64(env.GetInt("BACKFILL_MAX_PRICE", 1_000_000))
	runOnce := parseBool(os.Getenv("BACKFILL_RUN_ONCE"), false)

	client, err := harvest.NewClient(apiKey)
	if err != nil {
		log.Fatalf("listing client: %v", err)
	}

	st, err := store.Open(dsn)
	if err != nil {
		log.Fatalf("store open error: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Ping(ctx); err != nil {
		cancel()
		log.Fatalf("postgres ping error: %v", err)
	}
	if err := st.Migrate(ctx); err != nil {
		cancel()
		log.Fatalf("postgres migrate error: %v", err)
	}
	cancel()

	pub := events.NewInMemory(256)
	job := &ingest.BulkJob{
		Client: client,
		Writer: &ingest.Writer{Store: st, Pub: pub},
		Config: ingest.BulkConfig{
			Zips:                 zips,
			MaxPrice:             maxPrice,
			Limit:                limit,
			Interval:             interval,
			PauseBetweenRequests: pause,
			RequestTimeout:       requestTimeout,
		},
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runOnce {
		if err := job.RunOnce(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("backfill run failed: %v", err)
		}
		return
	}

	if err := job.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("backfill stopped with error: %v", err)
	}
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	fields := strings.FieldsFunc(v, func(r rune) bool {
		switch r {
		case ',', ';', '\n', '\r', '\t':
			return true
		default:
			return false
		}
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	dur, err := time.ParseDuration(v)
	if err == nil {
		return dur
	}
	if i, err2 := strconv.Atoi(v); err2 == nil {
		return time.Duration(i) * time.Second
	}
	return def
}

func parseBool(v string, def bool) bool {
	if v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
