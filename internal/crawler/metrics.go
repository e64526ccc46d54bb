package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched tracks search-result pages retrieved with content.
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_pages_fetched_total",
		Help: "The total number of search pages fetched with content.",
	})
	// ListingsDiscovered tracks listing ids seen on search pages.
	ListingsDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_listings_discovered_total",
		Help: "The total number of listing ids discovered on search pages.",
	})
	// ListingsSkippedExisting tracks listings skipped by the dedup gate.
	ListingsSkippedExisting = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_listings_skipped_existing_total",
		Help: "The total number of listings skipped because they are already persisted.",
	})
	// ListingsSkippedNoPhone tracks listings skipped for lack of a phone.
	ListingsSkippedNoPhone = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_listings_skipped_no_phone_total",
		Help: "The total number of listings skipped because no phone was disclosed.",
	})
	// ListingsPersisted tracks new records handed to the store.
	ListingsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_listings_persisted_total",
		Help: "The total number of new listing records persisted.",
	})
	// DedupCheckFailures tracks existence checks that errored.
	DedupCheckFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_dedup_check_failures_total",
		Help: "The total number of failed store existence checks.",
	})
	// PersistFailures tracks inserts that errored.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_persist_failures_total",
		Help: "The total number of failed listing inserts.",
	})
)
