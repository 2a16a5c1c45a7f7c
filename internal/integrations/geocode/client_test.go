package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_Geocode_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		require.Equal(t, "12 Main St, Springfield", r.URL.Query().Get("address"))
		require.Equal(t, "k", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[{
			"formatted_address":"12 Main St, Springfield, IL 62701, USA",
			"geometry":{"location":{"lat":39.8,"lng":-89.6}},
			"address_components":[
				{"long_name":"12","short_name":"12","types":["street_number"]},
				{"long_name":"Main Street","short_name":"Main St","types":["route"]},
				{"long_name":"Springfield","short_name":"Springfield","types":["locality","political"]},
				{"long_name":"Illinois","short_name":"IL","types":["administrative_area_level_1","political"]},
				{"long_name":"62701","short_name":"62701","types":["postal_code"]},
				{"long_name":"United States","short_name":"US","types":["country","political"]}
			]}]}`))
	}))
	defer srv.Close()

	a, err := New(srv.URL, "k").Geocode(context.Background(), "12 Main St, Springfield")
	require.NoError(t, err)
	require.NotNil(t, a)
	require.Equal(t, "12 Main Street", a.Street())
	require.Equal(t, "Springfield", a.City)
	require.Equal(t, "IL", a.State)
	require.Equal(t, "62701", a.PostalCode)
	require.Equal(t, "US", a.Country)
	require.InDelta(t, 39.8, a.Lat, 1e-9)
}

func TestClient_Geocode_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	a, err := New(srv.URL, "k").Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	require.Nil(t, a)
}

func TestClient_Geocode_Denied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k").Geocode(context.Background(), "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "REQUEST_DENIED")
}
