package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Address is the first geocoding match of a free-text address.
type Address struct {
	Formatted    string  `json:"formatted"`
	StreetNumber string  `json:"street_number"`
	Route        string  `json:"route"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	PostalCode   string  `json:"postal_code"`
	Country      string  `json:"country"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

// Street joins the street number and route.
func (a Address) Street() string {
	return strings.TrimSpace(a.StreetNumber + " " + a.Route)
}

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type component struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type geocodeResp struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress  string      `json:"formatted_address"`
		AddressComponents []component `json:"address_components"`
		Geometry          struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

// Geocode returns nil without error when the address has no match.
func (c *Client) Geocode(ctx context.Context, address string) (*Address, error) {
	u, err := url.Parse(c.baseURL + "/maps/api/geocode/json")
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	q := u.Query()
	q.Set("address", address)
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("geocode http %d", resp.StatusCode)
	}

	var r geocodeResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	switch r.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, fmt.Errorf("geocode status=%s %s", r.Status, r.ErrorMessage)
	}
	if len(r.Results) == 0 {
		return nil, nil
	}

	res := r.Results[0]
	a := &Address{
		Formatted: res.FormattedAddress,
		Lat:       res.Geometry.Location.Lat,
		Lng:       res.Geometry.Location.Lng,
	}
	for _, ac := range res.AddressComponents {
		switch {
		case has(ac.Types, "street_number"):
			a.StreetNumber = ac.LongName
		case has(ac.Types, "route"):
			a.Route = ac.LongName
		case has(ac.Types, "locality"):
			a.City = ac.LongName
		case has(ac.Types, "administrative_area_level_1"):
			a.State = ac.ShortName
		case has(ac.Types, "postal_code"):
			a.PostalCode = ac.LongName
		case has(ac.Types, "country"):
			a.Country = ac.ShortName
		}
	}
	return a, nil
}

func has(types []string, t string) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
