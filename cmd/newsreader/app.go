package main

import (
	"fmt"
	"time"

	"github.com/yx-shi/NewsClient-sub001/internal/cache"
	"github.com/yx-shi/NewsClient-sub001/internal/config"
	"github.com/yx-shi/NewsClient-sub001/internal/eventlog"
	"github.com/yx-shi/NewsClient-sub001/internal/feed"
	"github.com/yx-shi/NewsClient-sub001/internal/feedapi"
	"github.com/yx-shi/NewsClient-sub001/internal/logging"
	"github.com/yx-shi/NewsClient-sub001/internal/userstate"
)

// app bundles the wired-up stack shared by every subcommand.
type app struct {
	cfg    *config.Config
	evlog  *eventlog.Logger
	cache  *cache.Store
	state  *userstate.Store
	client *feedapi.Client
	repo   *feed.Repository
}

// openApp loads configuration and opens storage, logging, and the remote
// client. Callers must defer a.close().
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	if err := logging.Init(cfg.LogDir()); err != nil {
		return nil, err
	}
	logging.SetLevel(cfg.Logging.Level)

	evlog, err := eventlog.Open(cfg.EventLogPath())
	if err != nil {
		return nil, err
	}

	cacheStore, err := cache.NewStore(cfg.CacheDBPath())
	if err != nil {
		evlog.Close()
		return nil, fmt.Errorf("failed to open article cache: %w", err)
	}
	stateStore, err := userstate.NewStore(cfg.StateDBPath())
	if err != nil {
		cacheStore.Close()
		evlog.Close()
		return nil, fmt.Errorf("failed to open user state: %w", err)
	}

	client := feedapi.New(cfg.Feed.BaseURL,
		feedapi.WithTimeout(time.Duration(cfg.Feed.Timeout)),
		feedapi.WithRatePerSecond(cfg.Feed.RatePerSecond),
		feedapi.WithSearchBatch(cfg.Feed.SearchBatch),
		feedapi.WithEventLogger(evlog),
	)

	a := &app{
		cfg:    cfg,
		evlog:  evlog,
		cache:  cacheStore,
		state:  stateStore,
		client: client,
		repo:   feed.NewRepository(client, cacheStore, evlog),
	}
	evlog.Info(eventlog.KindStartup, "cli", "newsreader "+version)
	return a, nil
}

func (a *app) close() {
	a.evlog.Info(eventlog.KindShutdown, "cli", "")
	if err := a.state.Close(); err != nil {
		logging.Warn("failed to close user state", "error", err)
	}
	if err := a.cache.Close(); err != nil {
		logging.Warn("failed to close article cache", "error", err)
	}
	a.evlog.Close()
	logging.Close()
}
