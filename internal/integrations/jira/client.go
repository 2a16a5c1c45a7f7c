package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/OrderSync/internal/models"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RateLimiter is the shared per-minute counter used to pace tracker calls.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Client talks to the tracker REST API v3 of one instance.
type Client struct {
	baseURL  string
	email    string
	token    string
	instance int
	keys     FieldKeys
	httpc    *http.Client

	rl                 RateLimiter
	rateLimitPerMinute int64
}

func New(baseURL, email, token string, instance int) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		email:    email,
		token:    token,
		instance: instance,
		keys:     KeysFor(instance),
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) WithRateLimiter(rl RateLimiter, perMinute int64) *Client {
	c.rl = rl
	c.rateLimitPerMinute = perMinute
	return c
}

func (c *Client) Keys() FieldKeys { return c.keys }

func (c *Client) Instance() int { return c.instance }

// Issue is a raw issue from search results; fields stay undecoded.
type Issue struct {
	ID     string                     `json:"id"`
	Key    string                     `json:"key"`
	Fields map[string]json.RawMessage `json:"fields"`
}

type SearchResult struct {
	Total  int     `json:"total"`
	Issues []Issue `json:"issues"`
}

type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

type issueUpdate struct {
	Fields map[string]any `json:"fields"`
	Update map[string]any `json:"update"`
}

func (c *Client) encode(p models.TicketPayload) issueUpdate {
	return issueUpdate{Fields: EncodeFields(c.keys, p.Fields), Update: map[string]any{}}
}

// BulkCreate creates up to 50 issues in one call and returns the new keys.
func (c *Client) BulkCreate(ctx context.Context, payloads []models.TicketPayload) ([]string, error) {
	body := struct {
		IssueUpdates []issueUpdate `json:"issueUpdates"`
	}{IssueUpdates: make([]issueUpdate, 0, len(payloads))}
	for _, p := range payloads {
		body.IssueUpdates = append(body.IssueUpdates, c.encode(p))
	}

	var resp struct {
		Issues []struct {
			ID  string `json:"id"`
			Key string `json:"key"`
		} `json:"issues"`
		Errors []json.RawMessage `json:"errors"`
	}
	if err := c.do(ctx, http.MethodPost, "/issue/bulk", nil, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		log.Warn().Int("instance", c.instance).Int("failed", len(resp.Errors)).Msg("bulk create partially failed")
	}
	keys := make([]string, 0, len(resp.Issues))
	for _, is := range resp.Issues {
		keys = append(keys, is.Key)
	}
	return keys, nil
}

func (c *Client) UpdateIssue(ctx context.Context, issueID string, p models.TicketPayload) error {
	return c.do(ctx, http.MethodPut, "/issue/"+url.PathEscape(issueID), nil, c.encode(p), nil)
}

func (c *Client) TransitionIssue(ctx context.Context, issueID, transitionID string) error {
	body := map[string]any{"transition": map[string]string{"id": transitionID}}
	return c.do(ctx, http.MethodPost, "/issue/"+url.PathEscape(issueID)+"/transitions", nil, body, nil)
}

// Search runs a JQL query; paged selects the token-paged /search/jql endpoint.
func (c *Client) Search(ctx context.Context, jql string, maxResults int, paged bool) (*SearchResult, error) {
	q := url.Values{}
	q.Set("jql", jql)
	if maxResults > 0 {
		q.Set("maxResults", strconv.Itoa(maxResults))
	}
	q.Set("fields", "*all")

	path := "/search"
	if paged {
		path = "/search/jql"
	}
	var res SearchResult
	if err := c.do(ctx, http.MethodGet, path, q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) LinkIssues(ctx context.Context, linkType, inwardKey, outwardKey string) error {
	body := map[string]any{
		"type":         map[string]string{"name": linkType},
		"inwardIssue":  map[string]string{"key": inwardKey},
		"outwardIssue": map[string]string{"key": outwardKey},
	}
	return c.do(ctx, http.MethodPost, "/issueLink", nil, body, nil)
}

// FindUserByEmail returns nil when the tracker knows no such user.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	q := url.Values{}
	q.Set("query", email)
	var users []User
	if err := c.do(ctx, http.MethodGet, "/user/search", q, nil, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	c.throttle(ctx)

	u := c.baseURL + "/rest/api/3" + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode/100 != 2 {
		return newAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// throttlePause is how long a call waits once the minute's budget is spent.
var throttlePause = 500 * time.Millisecond

func (c *Client) throttle(ctx context.Context) {
	if c.rl == nil || c.rateLimitPerMinute <= 0 {
		return
	}
	key := fmt.Sprintf("rl:jira:%d:%s", c.instance, time.Now().UTC().Format("200601021504"))
	allowed, n, err := c.rl.Allow(ctx, key, c.rateLimitPerMinute, 70*time.Second)
	if err != nil {
		log.Warn().Err(err).Msg("jira rate limiter unavailable")
		return
	}
	if !allowed {
		log.Warn().Int("instance", c.instance).Int64("count", n).Msg("jira rate limit exceeded")
		select {
		case <-ctx.Done():
		case <-time.After(throttlePause):
		}
	}
}
