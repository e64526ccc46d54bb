// Package crawler drives the city -> page -> listing traversal against the
// origin site and hands every normalized record to the persistence sink.
package crawler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"olx-rent-crawler/internal/listing"
	"olx-rent-crawler/internal/parser"
)

// Config holds the settings for a crawl pass. It is decoupled from Viper so
// the engine can be constructed and tested independently.
type Config struct {
	Search        SearchParams
	Cities        []string
	MaxAdsPerCity int
	ListingDelay  time.Duration
}

// PageFetcher retrieves a raw body, returning nil once retries are exhausted.
type PageFetcher interface {
	FetchWithRetry(ctx context.Context, url string) []byte
}

// PhoneResolver resolves a listing's contact phone through the disclosure API.
type PhoneResolver interface {
	Resolve(ctx context.Context, id string) (string, error)
}

// DetailSource fetches and normalizes a listing's detail payload.
type DetailSource interface {
	FetchDetail(ctx context.Context, id, phone string) (*listing.Record, error)
}

// AdStore is the persistence sink keyed on listing id.
type AdStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Upsert(ctx context.Context, rec *listing.Record) error
}

// IDGenerator produces run ids for log correlation.
type IDGenerator interface {
	NewID() (string, error)
}

// Engine orchestrates one crawl pass. Cities, pages, and listings are
// processed strictly sequentially so the pacing delay bounds the request rate
// seen by the origin site.
type Engine struct {
	cfg     Config
	fetcher PageFetcher
	phones  PhoneResolver
	details DetailSource
	store   AdStore
	ids     IDGenerator
	pauser  Pauser
	logger  *zap.Logger
}

// NewEngine constructs an Engine with all collaborators injected.
func NewEngine(
	cfg Config,
	fetcher PageFetcher,
	phones PhoneResolver,
	details DetailSource,
	store AdStore,
	ids IDGenerator,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		fetcher: fetcher,
		phones:  phones,
		details: details,
		store:   store,
		ids:     ids,
		pauser:  timerPauser{},
		logger:  logger,
	}
}

// WithPauser overrides the pacing controller (used by tests).
func (e *Engine) WithPauser(p Pauser) *Engine {
	if p != nil {
		e.pauser = p
	}
	return e
}

// Run executes one full crawl pass over the configured cities and returns the
// number of records persisted. Per-listing failures never abort the pass; the
// only early exit is context cancellation.
func (e *Engine) Run(ctx context.Context) (int, error) {
	log := e.logger
	if e.ids != nil {
		if runID, err := e.ids.NewID(); err == nil {
			log = log.With(zap.String("run_id", runID))
		}
	}

	total := 0
	for _, city := range e.cfg.Cities {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		total += e.crawlCity(ctx, log, city)
	}

	log.Info("crawl pass finished", zap.Int("ads_collected", total))
	return total, ctx.Err()
}

// crawlCity pages through one city's search results until a page comes back
// empty, yields no ids, or the per-city cap is reached.
func (e *Engine) crawlCity(ctx context.Context, log *zap.Logger, city string) int {
	clog := log.With(zap.String("city", city))
	collected := 0

	for page := 1; ; page++ {
		if ctx.Err() != nil {
			return collected
		}

		url := BuildSearchURL(e.cfg.Search, page, city)
		body := e.fetcher.FetchWithRetry(ctx, url)
		if len(body) == 0 {
			clog.Info("no page content, city done", zap.Int("page", page))
			return collected
		}
		PagesFetched.Inc()

		if page == 1 {
			clog.Info("city search opened", zap.Int("advertised_total", parser.TotalCount(body)))
		}

		ids := parser.ListingIDs(body)
		if len(ids) == 0 {
			clog.Info("no listings on page, city done", zap.Int("page", page))
			return collected
		}
		ListingsDiscovered.Add(float64(len(ids)))

		if !e.processListings(ctx, clog, ids, &collected) {
			return collected
		}
	}
}

// processListings walks the ids of one page in document order. It returns
// false when the city traversal must stop (cap reached or context done).
func (e *Engine) processListings(ctx context.Context, clog *zap.Logger, ids []string, collected *int) bool {
	for _, id := range ids {
		if ctx.Err() != nil {
			return false
		}
		e.processListing(ctx, clog, id, collected)
		if *collected >= e.cfg.MaxAdsPerCity {
			clog.Info("per-city cap reached", zap.Int("collected", *collected))
			return false
		}
		e.pauser.Pause(ctx, e.cfg.ListingDelay)
	}
	return true
}

// processListing runs the per-listing pipeline: dedup gate, phone resolution,
// detail fetch, persist. The existence check must happen before any expensive
// per-listing network call.
func (e *Engine) processListing(ctx context.Context, clog *zap.Logger, id string, collected *int) {
	llog := clog.With(zap.String("ad_id", id))

	exists, err := e.store.Exists(ctx, id)
	if err != nil {
		DedupCheckFailures.Inc()
		llog.Error("dedup check failed, skipping listing", zap.Error(err))
		return
	}
	if exists {
		ListingsSkippedExisting.Inc()
		llog.Debug("listing already persisted")
		return
	}

	phone, err := e.phones.Resolve(ctx, id)
	if err != nil || phone == "" {
		ListingsSkippedNoPhone.Inc()
		llog.Info("no phone disclosed, skipping listing")
		return
	}

	rec, err := e.details.FetchDetail(ctx, id, phone)
	if err != nil {
		llog.Warn("detail payload unavailable, skipping listing", zap.Error(err))
		return
	}

	if err := e.store.Upsert(ctx, rec); err != nil {
		PersistFailures.Inc()
		llog.Error("persist failed", zap.Error(err))
		return
	}

	ListingsPersisted.Inc()
	*collected++
	llog.Info("listing persisted", zap.String("city", rec.City))
}
