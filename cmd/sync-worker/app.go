package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/BearBump/OrderSync/config"
	"github.com/BearBump/OrderSync/internal/broker/kafka"
	"github.com/BearBump/OrderSync/internal/cache"
	"github.com/BearBump/OrderSync/internal/cache/rediscache"
	"github.com/BearBump/OrderSync/internal/integrations/cubicasa"
	"github.com/BearBump/OrderSync/internal/integrations/dropbox"
	"github.com/BearBump/OrderSync/internal/integrations/geocode"
	"github.com/BearBump/OrderSync/internal/integrations/jira"
	"github.com/BearBump/OrderSync/internal/integrations/rela"
	"github.com/BearBump/OrderSync/internal/metrics"
	"github.com/BearBump/OrderSync/internal/services/dispatcher"
	"github.com/BearBump/OrderSync/internal/services/idempotency"
	"github.com/BearBump/OrderSync/internal/services/linker"
	"github.com/BearBump/OrderSync/internal/services/ordersync"
	"github.com/BearBump/OrderSync/internal/services/tickets"
	"github.com/BearBump/OrderSync/internal/services/workflow"
	"github.com/BearBump/OrderSync/internal/storage/pgprefs"
	"github.com/rs/zerolog/log"
)

type consumer interface {
	dispatcher.Consumer
	io.Closer
}

type workerFactories struct {
	newPreferences func(cfg *config.Config) (prefs ordersync.PreferenceStore, closeFn func(), err error)
	newCache       func(cfg *config.Config) cache.BytesCache
	newRateLimiter func(cfg *config.Config) jira.RateLimiter
	newStorage     func(ctx context.Context, cfg *config.Config, instance int) (workflow.Storage, error)
	newConsumer    func(cfg *config.Config) consumer
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newPreferences: func(cfg *config.Config) (ordersync.PreferenceStore, func(), error) {
			st, err := openPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newCache: func(cfg *config.Config) cache.BytesCache {
			return rediscache.New(cfg.Redis.Addr())
		},
		newRateLimiter: func(cfg *config.Config) jira.RateLimiter {
			return rediscache.NewRateLimiter(cfg.Redis.Addr())
		},
		newStorage: func(ctx context.Context, cfg *config.Config, instance int) (workflow.Storage, error) {
			acc, ok := cfg.Dropbox.Accounts[instance]
			if !ok {
				return nil, fmt.Errorf("no storage account %d", instance)
			}
			c := dropbox.New(cfg.Dropbox.APIURL, cfg.Dropbox.Root, dropbox.Credentials{
				AppKey:       cfg.Dropbox.AppKey,
				AppSecret:    cfg.Dropbox.AppSecret,
				RefreshToken: acc.RefreshToken,
			})
			if err := c.Init(ctx); err != nil {
				return nil, err
			}
			return c, nil
		},
		newConsumer: func(cfg *config.Config) consumer {
			group := cfg.Worker.KafkaConsumerGroup
			if group == "" {
				group = "sync-worker"
			}
			return kafka.NewConsumer(cfg.Kafka.Brokers(), cfg.Kafka.TopicName(), group)
		},
	}
}

func openPostgresWithRetry(connString string, wait time.Duration) (*pgprefs.Storage, error) {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgprefs.New(connString)
		if err == nil {
			return st, nil
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	return nil, fmt.Errorf("postgres is not ready after %s: %w", wait, lastErr)
}

// buildStores wires one syncer and one workflow engine per configured store.
// Storage clients are shared by stores on the same account.
func buildStores(ctx context.Context, cfg *config.Config, f workerFactories, prefs ordersync.PreferenceStore, guard workflow.Guard, rl jira.RateLimiter) (map[string]dispatcher.Store, error) {
	rlPerMin := int64(cfg.Jira.RateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 300
	}

	drafter := cubicasa.New(cfg.Cubicasa.BaseURL, cfg.Cubicasa.APIKey)
	listings := rela.New(cfg.Rela.BaseURL, cfg.Rela.APIKey)
	geocoder := geocode.New(cfg.Geocode.BaseURL, cfg.Geocode.APIKey)

	storages := map[int]workflow.Storage{}
	stores := make(map[string]dispatcher.Store, len(cfg.Stores))
	for _, id := range cfg.StoreIDs() {
		s := cfg.Stores[id]
		inst := cfg.Jira.Instances[s.TrackerInstance]

		jc := jira.New(inst.BaseURL, cfg.Jira.Email, cfg.Jira.Token, s.TrackerInstance)
		if rl != nil {
			jc = jc.WithRateLimiter(rl, rlPerMin)
		}
		tc := tickets.New(jc, s.BoardID)

		storage, ok := storages[s.StorageInstance]
		if !ok {
			var err error
			storage, err = f.newStorage(ctx, cfg, s.StorageInstance)
			if err != nil {
				return nil, fmt.Errorf("store %q: storage: %w", id, err)
			}
			storages[s.StorageInstance] = storage
		}

		stores[id] = dispatcher.Store{
			Syncer: ordersync.New(s, tc, prefs, linker.New(tc, cfg.Jira.LinkType, cfg.Jira.LinksPerSecond, 1)),
			Workflow: workflow.New(s, workflow.Deps{
				Tickets:  tc,
				Drafter:  drafter,
				Storage:  storage,
				Listings: listings,
				Geocoder: geocoder,
				Guard:    guard,
			}),
			Keys: jira.KeysFor(s.TrackerInstance),
		}
		log.Info().Str("store", id).Int("tracker", s.TrackerInstance).Int("storage", s.StorageInstance).Msg("store wired")
	}
	return stores, nil
}

func RunSyncWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	prefs, closeFn, err := f.newPreferences(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	kv := f.newCache(cfg)
	if c, ok := kv.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	rl := f.newRateLimiter(cfg)
	if c, ok := rl.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	stores, err := buildStores(ctx, cfg, f, prefs, idempotency.New(kv), rl)
	if err != nil {
		return err
	}

	m := metrics.New()
	d := dispatcher.New(stores, m)

	c := f.newConsumer(cfg)
	defer func() { _ = c.Close() }()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:   cfg.Worker.HTTPAddr,
			dispatcher: d,
			metrics:    m,
			cfg:        cfg,
			ready:      pinger(kv),
		})
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx, c) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	case err := <-runErr:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
}

// pinger returns the readiness probe of v, or nil when v has none.
func pinger(v any) func(ctx context.Context) error {
	if p, ok := v.(interface{ Ping(ctx context.Context) error }); ok {
		return p.Ping
	}
	return nil
}
