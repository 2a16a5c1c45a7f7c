package cubicasa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DraftRequest describes the floorplan job for one ticket.
type DraftRequest struct {
	TicketKey   string `json:"external_id"`
	OrderNumber string `json:"order_number"`
	Address     string `json:"address"`
	Service     string `json:"service"`
	ClientEmail string `json:"client_email,omitempty"`
	Instance    int    `json:"tracker_instance"`
}

type DraftOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url"`
}

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.cubi.casa"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreateDraftOrder opens a draft scan order that the field team completes on site.
func (c *Client) CreateDraftOrder(ctx context.Context, in DraftRequest) (*DraftOrder, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, errors.Wrap(err, "marshal")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("cubicasa http %d", resp.StatusCode)
	}

	var out DraftOrder
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return &out, nil
}
