package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourorg/flipdash/harvest"
	httpapi "github.com/yourorg/flipdash/http"
	"github.com/yourorg/flipdash/internal/dashboard"
	"github.com/yourorg/flipdash/internal/dataset"
	"github.com/yourorg/flipdash/internal/env"
	"github.com/yourorg/flipdash/internal/events"
	"github.com/yourorg/flipdash/internal/ingest"
	"github.com/yourorg/flipdash/internal/logger"
	"github.com/yourorg/flipdash/internal/redisx"
	"github.com/yourorg/flipdash/internal/refresh"
	"github.com/yourorg/flipdash/internal/store"
)

func main() {
	_ = godotenv.Load()

	port := env.GetInt("PORT", 4000)
	apiKey := env.Must("LISTING_API_KEY")

	client, err := harvest.NewClient(apiKey)
	if err != nil {
		log.Fatalf("listing client: %v", err)
	}
	data := dataset.New()
	pub := events.NewInMemory(256)

	var st *store.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		st, err = store.Open(dsn)
		if err != nil {
			log.Printf("[WARN] store open failed, running without archive: %v", err)
			st = nil
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := st.Ping(ctx); err != nil {
				log.Printf("[WARN] postgres unreachable, running without archive: %v", err)
				st = nil
			} else if err := st.Migrate(ctx); err != nil {
				log.Printf("[WARN] postgres migrate failed, running without archive: %v", err)
				st = nil
			}
			cancel()
		}
	}
	writer := &ingest.Writer{Store: st, Pub: pub}

	var rds *redisx.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rds = redisx.New(addr, os.Getenv("REDIS_PASSWORD"), env.GetInt("REDIS_DB", 0))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rds.Ping(ctx); err != nil {
			log.Printf("[WARN] redis unreachable, running without cache: %v", err)
			rds = nil
		}
		cancel()
	}

	deps := httpapi.Deps{
		Client: client,
		Data:   data,
		Writer: writer,
		Redis:  rds,
	}

	deps.Sessions = dashboard.NewManager(dashboard.Config{
		MapKey: os.Getenv("MAP_API_KEY"),
		Search: func(ctx context.Context, zip string, maxPrice float64, limit int) ([]harvest.Property, error) {
			raw, err := client.SearchForSale(ctx, zip, maxPrice, limit)
			if err != nil {
				return nil, err
			}
			props, err := harvest.NormalizePayload(raw)
			if err != nil {
				return nil, err
			}
			data.Replace(zip, props)
			if writer.Enabled() && len(props) > 0 {
				go func() {
					wctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					if err := writer.Write(wctx, "rapidapi.homeharvest", "search/forsale", zip, props, raw); err != nil {
						log.Printf("[WARN] persist for %s failed: %v", zip, err)
					}
				}()
			}
			return props, nil
		},
		PanelFetches: httpapi.PanelFetches(deps),
	})

	// Warm analysis caches as persisted properties are announced.
	prefetch := refresh.New(256, 2, func(ctx context.Context, j refresh.Job) {
		httpapi.WarmAnalysis(ctx, deps, j.PropertyID)
	})
	go prefetch.Consume(context.Background(), pub)

	router := BuildRouter(deps)

	log.Printf("flipdash listening on :%d", port)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), logger.Middleware(router)); err != nil {
		log.Fatal(err)
	}
}
