package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BearBump/OrderSync/internal/broker/messages"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type published struct {
	topic string
	key   []byte
	value []byte
}

type fakePublisher struct {
	got []published
	err error
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.got = append(p.got, published{topic: topic, key: key, value: value})
	return nil
}

func newServer(t *testing.T, pub *fakePublisher) *httptest.Server {
	r := chi.NewRouter()
	r.Mount("/webhooks", New([]string{"main"}, pub, "ordersync.events").Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, map[string]string) {
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestWebhooks_OrderCreatedQueued(t *testing.T) {
	pub := &fakePublisher{}
	srv := newServer(t, pub)

	body := `{"id":"42","products_list":[{"name":"Photos"}]}`
	resp, out := post(t, srv, "/webhooks/main/orders/created", body)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotEmpty(t, out["id"])

	require.Len(t, pub.got, 1)
	require.Equal(t, "ordersync.events", pub.got[0].topic)
	require.Equal(t, []byte("main"), pub.got[0].key)

	env, err := messages.Decode(pub.got[0].value)
	require.NoError(t, err)
	require.Equal(t, out["id"], env.ID)
	require.Equal(t, messages.TypeOrderCreated, env.Type)
	require.JSONEq(t, body, string(env.Payload))
}

func TestWebhooks_RoutesByType(t *testing.T) {
	pub := &fakePublisher{}
	srv := newServer(t, pub)

	cases := map[string]string{
		"/webhooks/main/orders/updated": `{"id":"42","status":"cancelled"}`,
		"/webhooks/main/assignments":    `{"id":"a1","order_id":"42","status":"scheduled"}`,
		"/webhooks/main/issues/moved":   `{"issue":{"id":"10001","key":"NDP-1","fields":{}},"changelog":{"id":"7","items":[]}}`,
	}
	want := map[string]string{
		"/webhooks/main/orders/updated": messages.TypeOrderUpdated,
		"/webhooks/main/assignments":    messages.TypeAssignmentChanged,
		"/webhooks/main/issues/moved":   messages.TypeIssueMoved,
	}
	for path, body := range cases {
		resp, _ := post(t, srv, path, body)
		require.Equal(t, http.StatusAccepted, resp.StatusCode, path)
		env, err := messages.Decode(pub.got[len(pub.got)-1].value)
		require.NoError(t, err)
		require.Equal(t, want[path], env.Type)
	}
}

func TestWebhooks_UnknownStore(t *testing.T) {
	pub := &fakePublisher{}
	srv := newServer(t, pub)

	resp, _ := post(t, srv, "/webhooks/other/orders/created", `{"id":"42"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Empty(t, pub.got)
}

func TestWebhooks_InvalidBodyNotQueued(t *testing.T) {
	pub := &fakePublisher{}
	srv := newServer(t, pub)

	resp, out := post(t, srv, "/webhooks/main/orders/created", `{"products_list":[{"name":"Photos"}]}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, out["error"], "Order.id required")

	resp, out = post(t, srv, "/webhooks/main/orders/created", `{"id":"42","products_list":[{"name":""}]}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, out["error"], "products_list[0].name")

	resp, _ = post(t, srv, "/webhooks/main/issues/moved", `{"changelog":{}}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, srv, "/webhooks/main/assignments", `{"id":"a1"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, srv, "/webhooks/main/orders/updated", `{`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.Empty(t, pub.got)
}

func TestWebhooks_PublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("kafka down")}
	srv := newServer(t, pub)

	resp, out := post(t, srv, "/webhooks/main/orders/created", `{"id":"42"}`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "queue unavailable", out["error"])
}
