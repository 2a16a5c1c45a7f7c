package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/OrderSync/config"
	"github.com/BearBump/OrderSync/internal/cache"
	"github.com/BearBump/OrderSync/internal/cache/rediscache"
	"github.com/BearBump/OrderSync/internal/integrations/dropbox"
	"github.com/BearBump/OrderSync/internal/integrations/jira"
	"github.com/BearBump/OrderSync/internal/metrics"
	"github.com/BearBump/OrderSync/internal/models"
	"github.com/BearBump/OrderSync/internal/services/dispatcher"
	"github.com/BearBump/OrderSync/internal/services/ordersync"
	"github.com/BearBump/OrderSync/internal/services/workflow"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

type fakePrefs struct{}

func (fakePrefs) LoadPreferencesByAgentEmail(ctx context.Context) (map[string]models.AgentPreference, error) {
	return map[string]models.AgentPreference{}, nil
}

type fakeGuard struct{}

func (fakeGuard) Seen(ctx context.Context, key string) (bool, error) { return false, nil }
func (fakeGuard) Mark(ctx context.Context, key string) error         { return nil }

type memCache struct {
	m      map[string][]byte
	closed bool
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.m[key] = value
	return nil
}

func (c *memCache) Close() error {
	c.closed = true
	return nil
}

type closingLimiter struct{ closed bool }

func (l *closingLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	return true, 1, nil
}

func (l *closingLimiter) Close() error {
	l.closed = true
	return nil
}

type fakeStorage struct{}

func (fakeStorage) CreateFolders(ctx context.Context, r dropbox.FolderRequest) ([]dropbox.FolderLink, error) {
	return nil, nil
}
func (fakeStorage) FetchFilesFromURL(ctx context.Context, link string) ([]string, error) {
	return nil, nil
}

type blockingConsumer struct{ closed bool }

func (c *blockingConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func (c *blockingConsumer) Close() error {
	c.closed = true
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Jira: config.JiraConfig{
			Instances: map[int]config.JiraInstance{1: {BaseURL: "http://jira.local"}, 2: {BaseURL: "http://jira2.local"}},
		},
		Stores: map[string]models.StoreConfig{
			"main":  {ID: "main", TrackerInstance: 1, StorageInstance: 1, BoardID: "11400"},
			"north": {ID: "north", TrackerInstance: 2, StorageInstance: 1, BoardID: "11500"},
		},
		Worker: config.WorkerConfig{HTTPAddr: "127.0.0.1:0"},
	}
}

func testFactories(storageCalls *int, c *blockingConsumer, prefsClosed *bool, kv *memCache) workerFactories {
	return workerFactories{
		newPreferences: func(cfg *config.Config) (ordersync.PreferenceStore, func(), error) {
			return fakePrefs{}, func() { *prefsClosed = true }, nil
		},
		newCache:       func(cfg *config.Config) cache.BytesCache { return kv },
		newRateLimiter: func(cfg *config.Config) jira.RateLimiter { return nil },
		newStorage: func(ctx context.Context, cfg *config.Config, instance int) (workflow.Storage, error) {
			*storageCalls++
			return fakeStorage{}, nil
		},
		newConsumer: func(cfg *config.Config) consumer { return c },
	}
}

func TestBuildStores_SharesStorageAccount(t *testing.T) {
	calls := 0
	closed := false
	f := testFactories(&calls, &blockingConsumer{}, &closed, &memCache{m: map[string][]byte{}})

	stores, err := buildStores(context.Background(), testConfig(), f, fakePrefs{}, fakeGuard{}, nil)
	require.NoError(t, err)
	require.Len(t, stores, 2)
	require.Equal(t, 1, calls)
	require.Equal(t, jira.KeysFor(2), stores["north"].Keys)
	require.NotNil(t, stores["main"].Syncer)
	require.NotNil(t, stores["main"].Workflow)
}

func TestRunSyncWorker_ContextCanceled(t *testing.T) {
	calls := 0
	closed := false
	c := &blockingConsumer{}
	kv := &memCache{m: map[string][]byte{}}
	f := testFactories(&calls, c, &closed, kv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunSyncWorker(ctx, testConfig(), f)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, closed)
	require.True(t, c.closed)
	require.True(t, kv.closed)
}

func TestRunSyncWorker_ClosesRateLimiter(t *testing.T) {
	calls := 0
	closed := false
	f := testFactories(&calls, &blockingConsumer{}, &closed, &memCache{m: map[string][]byte{}})
	rl := &closingLimiter{}
	f.newRateLimiter = func(cfg *config.Config) jira.RateLimiter { return rl }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunSyncWorker(ctx, testConfig(), f)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, rl.closed)
}

func TestWorkerRouter(t *testing.T) {
	m := metrics.New()
	d := dispatcher.New(map[string]dispatcher.Store{}, m)
	require.NoError(t, d.Handle(context.Background(), []byte(`nope`)))

	srv := httptest.NewServer(newWorkerRouter(workerHTTPOpts{
		dispatcher: d,
		metrics:    m,
		cfg:        testConfig(),
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	var st dispatcher.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	require.Equal(t, int64(1), st.TotalReceived)
	require.Equal(t, int64(1), st.TotalDropped)

	resp, err = http.Get(srv.URL + "/config")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(body), `"boardId":"11500"`)
	require.NotContains(t, string(body), "token")

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "ordersync_events_total")

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWorkerRouter_NotReadyWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	kv := rediscache.New(mr.Addr())
	defer kv.Close()

	srv := httptest.NewServer(newWorkerRouter(workerHTTPOpts{
		dispatcher: dispatcher.New(nil, nil),
		ready:      pinger(kv),
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mr.Close()
	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Contains(t, string(body), "redis ping")
}
