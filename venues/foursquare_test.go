package venues

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuery() Query {
	return Query{
		Lat:          40.7,
		Lng:          -74.0,
		CategoryIDs:  []string{BurgerCategoryID, BeerCategoryID},
		RadiusMeters: RadiusMeters,
		Intent:       IntentBrowse,
		Limit:        ResultLimit,
	}
}

func TestClientSearch(t *testing.T) {
	var gotParams url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/venues/search", r.URL.Path)
		gotParams = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"meta": {"code": 200},
			"response": {"venues": [
				{
					"id": "abc123",
					"name": "Burger Joint",
					"url": "https://burgerjoint.example",
					"location": {"lat": 40.71, "lng": -74.01, "address": "1 Main St"}
				},
				{
					"id": "def456",
					"name": "Beer Hall",
					"location": {"lat": 40.72, "lng": -74.02}
				}
			]}
		}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{
		ClientID:     "id-1",
		ClientSecret: "secret-1",
		BaseURL:      srv.URL,
	})

	got, err := c.Search(context.Background(), testQuery())
	require.NoError(t, err)

	assert.Equal(t, "id-1", gotParams.Get("client_id"))
	assert.Equal(t, "secret-1", gotParams.Get("client_secret"))
	assert.Equal(t, "20180323", gotParams.Get("v"))
	assert.Equal(t, "40.7,-74", gotParams.Get("ll"))
	assert.Equal(t, BurgerCategoryID+","+BeerCategoryID, gotParams.Get("categoryId"))
	assert.Equal(t, "15000", gotParams.Get("radius"))
	assert.Equal(t, "browse", gotParams.Get("intent"))
	assert.Equal(t, "50", gotParams.Get("limit"))

	require.Len(t, got, 2)
	assert.Equal(t, Venue{
		ID:   "abc123",
		Name: "Burger Joint",
		URL:  "https://burgerjoint.example",
		Location: Location{
			Lat:     40.71,
			Lng:     -74.01,
			Address: "1 Main St",
		},
	}, got[0])
	assert.Equal(t, "Beer Hall", got[1].Name)
	assert.Empty(t, got[1].URL)
}

func TestClientSearchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"meta": {"code": 401, "errorType": "invalid_auth", "errorDetail": "Missing access credentials"},
			"response": {}
		}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL})
	_, err := c.Search(context.Background(), testQuery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_auth")
}

func TestClientSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL})
	_, err := c.Search(context.Background(), testQuery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestClientSearchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL})
	_, err := c.Search(context.Background(), testQuery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClientSearchConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL})
	_, err := c.Search(context.Background(), testQuery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foursquare: request")
}

func TestCanonicalURL(t *testing.T) {
	v := Venue{ID: "abc123"}
	assert.Equal(t, "https://foursquare.com/v/abc123", v.CanonicalURL())
}
