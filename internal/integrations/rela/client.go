package rela

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/OrderSync/internal/integrations/geocode"
	"github.com/pkg/errors"
)

// AgentInput identifies the listing agent of an order.
type AgentInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UploadResult struct {
	Accepted int    `json:"accepted"`
	Status   string `json:"status"`
}

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.relahq.com"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, hdr http.Header, in, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal")
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header[k] = v
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("rela http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}

// FetchOrCreateAgent looks the agent up by email and creates it when missing.
func (c *Client) FetchOrCreateAgent(ctx context.Context, in AgentInput) (*Agent, error) {
	if in.Email == "" {
		return nil, errors.New("agent email is required")
	}
	q := url.Values{}
	q.Set("email", strings.ToLower(in.Email))
	var found struct {
		Agents []Agent `json:"agents"`
	}
	if err := c.do(ctx, http.MethodGet, "/agents", q, nil, nil, &found); err != nil {
		return nil, errors.Wrap(err, "find agent")
	}
	if len(found.Agents) > 0 {
		return &found.Agents[0], nil
	}

	var created Agent
	if err := c.do(ctx, http.MethodPost, "/agents", nil, nil, in, &created); err != nil {
		return nil, errors.Wrap(err, "create agent")
	}
	return &created, nil
}

type propertyRequest struct {
	AgentID    string  `json:"agent_id"`
	OrderID    string  `json:"external_order_id"`
	Street     string  `json:"street"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// NewPropertyLink creates a listing for the order and returns its upload URL.
func (c *Client) NewPropertyLink(ctx context.Context, agent *Agent, addr *geocode.Address, orderID string) (string, error) {
	if agent == nil || addr == nil {
		return "", errors.New("agent and address are required")
	}
	in := propertyRequest{
		AgentID:    agent.ID,
		OrderID:    orderID,
		Street:     addr.Street(),
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Lat:        addr.Lat,
		Lng:        addr.Lng,
	}
	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/properties", nil, nil, in, &out); err != nil {
		return "", errors.Wrap(err, "create property")
	}
	if out.URL == "" {
		return "", errors.Errorf("property %s has no url", out.ID)
	}
	return out.URL, nil
}

// UploadImages submits media links to a listing. The key lets the platform
// drop a repeated submission.
func (c *Client) UploadImages(ctx context.Context, links []string, listingID, idempotencyKey string) (*UploadResult, error) {
	hdr := http.Header{}
	if idempotencyKey != "" {
		hdr.Set("Idempotency-Key", idempotencyKey)
	}
	in := map[string]any{"urls": links}
	var out UploadResult
	if err := c.do(ctx, http.MethodPost, "/properties/"+url.PathEscape(listingID)+"/media", nil, hdr, in, &out); err != nil {
		return nil, errors.Wrapf(err, "upload media to %s", listingID)
	}
	return &out, nil
}

// ListingID extracts the numeric listing id, the third segment of the URL path.
func ListingID(listingURL string) (string, error) {
	u, err := url.Parse(listingURL)
	if err != nil {
		return "", errors.Wrap(err, "parse listing url")
	}
	segs := strings.Split(u.Path, "/")
	if len(segs) < 4 || segs[3] == "" {
		return "", errors.Errorf("listing url %q has no id segment", listingURL)
	}
	return segs[3], nil
}
