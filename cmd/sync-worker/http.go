package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/OrderSync/config"
	"github.com/BearBump/OrderSync/internal/metrics"
	"github.com/BearBump/OrderSync/internal/services/dispatcher"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type workerHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	dispatcher *dispatcher.Dispatcher
	metrics    *metrics.Metrics
	cfg        *config.Config
	ready      func(ctx context.Context) error
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newWorkerRouter(opts), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	log.Info().Str("addr", lis.Addr().String()).Msg("worker HTTP listening")
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}

func newWorkerRouter(opts workerHTTPOpts) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.dispatcher == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"starting"}`))
			return
		}
		if opts.ready != nil {
			if err := opts.ready(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.dispatcher == nil {
			_, _ = w.Write([]byte(`{"error":"dispatcher not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.dispatcher.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.cfg == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		// No secrets: only routing and pacing settings.
		stores := map[string]any{}
		for _, id := range opts.cfg.StoreIDs() {
			s := opts.cfg.Stores[id]
			stores[id] = map[string]any{
				"trackerInstance": s.TrackerInstance,
				"storageInstance": s.StorageInstance,
				"boardId":         s.BoardID,
				"timeZone":        s.TimeZone,
			}
		}
		out := map[string]any{
			"topic":                  opts.cfg.Kafka.TopicName(),
			"consumerGroup":          opts.cfg.Worker.KafkaConsumerGroup,
			"jiraRateLimitPerMinute": opts.cfg.Jira.RateLimitPerMinute,
			"linksPerSecond":         opts.cfg.Jira.LinksPerSecond,
			"stores":                 stores,
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	if opts.metrics != nil {
		r.Handle("/metrics", opts.metrics.Handler())
	}
	return r
}
