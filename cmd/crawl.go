package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"olx-rent-crawler/internal/api"
	"olx-rent-crawler/internal/app"
	"olx-rent-crawler/internal/crawler"
	"olx-rent-crawler/internal/fetcher"
	"olx-rent-crawler/internal/id/uuid"
	"olx-rent-crawler/internal/listing"
	"olx-rent-crawler/internal/phone"
)

// newCrawlCmd creates the 'crawl' subcommand: one full crawl pass, then exit.
// The external scheduler is expected to invoke this once per day.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs one full crawl pass over the configured cities",
		Long: `Crawls the configured search across all cities sequentially, skipping
listings already present in the database, and persists every new listing that
discloses a contact phone. Finishes with a summary count.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := buildEngine(appInstance)
	if err != nil {
		return err
	}

	if addr := appInstance.Cfg.Metrics.Addr; addr != "" {
		admin := api.NewServer(addr, appInstance.Logger)
		admin.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := admin.Stop(shutdownCtx); err != nil {
				appInstance.Logger.Warn("admin server shutdown failed", zap.Error(err))
			}
		}()
	}

	collected, err := engine.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl pass: %w", err)
	}
	appInstance.Logger.Info("crawl command finished", zap.Int("ads_collected", collected))
	return nil
}

func buildEngine(a *app.App) (*crawler.Engine, error) {
	cfg := a.Cfg

	fetchClient, err := fetcher.New(fetcher.Config{
		UserAgent:   cfg.HTTP.UserAgent,
		Timeout:     cfg.HTTPTimeout(),
		MaxAttempts: cfg.HTTP.MaxAttempts,
		RetryDelay:  cfg.RetryDelay(),
	}, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	phones, err := phone.NewResolver(phone.Config{
		BaseURL:       cfg.Site.BaseURL,
		ProxyHost:     cfg.Proxy.Host,
		ProxyPort:     cfg.Proxy.Port,
		ProxyUsername: cfg.Proxy.Username,
		ProxyPassword: cfg.Proxy.Password,
		Timeout:       time.Duration(cfg.Proxy.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("init phone resolver: %w", err)
	}

	houseType := ""
	if cfg.Site.Space == "arenda-kvartiry" {
		houseType = "apartment"
	}
	details := listing.NewClient(fetchClient, cfg.Site.BaseURL, listing.Tags{
		Source:    cfg.Site.Source,
		AdType:    cfg.Site.AdType,
		HouseType: houseType,
	})

	engine := crawler.NewEngine(
		crawler.Config{
			Search: crawler.SearchParams{
				BaseURL:   cfg.Site.BaseURL,
				Type:      cfg.Site.Type,
				Space:     cfg.Site.Space,
				HasPhotos: cfg.Search.HasPhotos,
				FromOwner: cfg.Search.FromOwner,
				Rooms:     cfg.Search.Rooms,
			},
			Cities:        cfg.Search.Cities,
			MaxAdsPerCity: cfg.Crawler.MaxAdsPerCity,
			ListingDelay:  cfg.ListingDelay(),
		},
		fetchClient,
		phones,
		details,
		a.Store,
		uuid.New(),
		a.Logger,
	)
	return engine, nil
}
