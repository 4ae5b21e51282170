package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourorg/flipdash/harvest"
)

type BulkConfig struct {
	Zips                 []string
	MaxPrice             float64
	Limit                int
	Interval             time.Duration
	PauseBetweenRequests time.Duration
	RequestTimeout       time.Duration
	Provider             string
	Endpoint             string
}

// BulkJob periodically pulls listings for a set of zips and persists them
// through the write-behind path, keeping the archive warm between searches.
type BulkJob struct {
	Client *harvest.Client
	Writer *Writer
	Logger *log.Logger
	Config BulkConfig
}

func (j *BulkJob) logf(format string, args ...any) {
	if j.Logger != nil {
		j.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (j *BulkJob) validate() error {
	if j == nil {
		return errors.New("nil bulk job")
	}
	if j.Client == nil {
		return errors.New("bulk job missing client")
	}
	if j.Writer == nil || j.Writer.Store == nil {
		return errors.New("bulk job requires writer with store")
	}
	if len(j.Config.Zips) == 0 {
		return errors.New("bulk job requires at least one zip")
	}
	if j.Config.Provider == "" {
		j.Config.Provider = "rapidapi.homeharvest"
	}
	if j.Config.Endpoint == "" {
		j.Config.Endpoint = "search/forsale"
	}
	if j.Config.MaxPrice <= 0 {
		j.Config.MaxPrice = 1_000_000
	}
	if j.Config.Limit <= 0 {
		j.Config.Limit = 50
	}
	return nil
}

func (j *BulkJob) Run(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	interval := j.Config.Interval
	if interval <= 0 {
		return j.RunOnce(ctx)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	j.logf("backfill starting with interval %s (%d zip(s))", interval, len(j.Config.Zips))
	if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		j.logf("backfill initial run error: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			j.logf("backfill stopping: %v", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.logf("backfill iteration error: %v", err)
			}
		}
	}
}

func (j *BulkJob) RunOnce(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	var joined error
	for _, rawZip := range j.Config.Zips {
		zip := strings.TrimSpace(rawZip)
		if zip == "" {
			continue
		}
		if err := j.ingestZip(ctx, zip); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, harvest.ErrDailyLimitExceeded) {
				return err
			}
			joined = errors.Join(joined, err)
		}
		if pause := j.Config.PauseBetweenRequests; pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pause):
			}
		}
	}
	return joined
}

func (j *BulkJob) ingestZip(ctx context.Context, zip string) error {
	timeout := j.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	raw, err := j.Client.SearchForSale(reqCtx, zip, j.Config.MaxPrice, j.Config.Limit)
	cancel()
	if err != nil {
		if errors.Is(err, harvest.ErrDailyLimitExceeded) {
			return err
		}
		return fmt.Errorf("zip %s fetch: %w", zip, err)
	}
	props, err := harvest.NormalizePayload(raw)
	if err != nil {
		return fmt.Errorf("zip %s normalize: %w", zip, err)
	}
	if len(props) == 0 {
		j.logf("backfill zip %s returned 0 listings", zip)
		return nil
	}
	if err := j.Writer.Write(ctx, j.Config.Provider, j.Config.Endpoint, zip, props, raw); err != nil {
		return fmt.Errorf("zip %s persist: %w", zip, err)
	}
	j.logf("backfill zip %s persisted %d listings", zip, len(props))
	return nil
}
