package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/routing"
)

func newDirectionsServer(t *testing.T, fixture string, seen func(*http.Request)) *httptest.Server {
	body := loadTestFixture(t, fixture)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			seen(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDirectionsClient_Success(t *testing.T) {
	var got *http.Request
	server := newDirectionsServer(t, "directions_ok.json", func(r *http.Request) { got = r })

	client, err := NewDirectionsClient("test-api-key", server.URL, 5*time.Second)
	require.NoError(t, err)

	resp, err := client.Directions(context.Background(), seattle, portland, routing.Bicycling)
	require.NoError(t, err)
	assert.Equal(t, []string{"_p~iF~ps|U_ulLnnqC", "_mqNvxq`@"}, resp.Polylines())

	require.NotNil(t, got)
	assert.True(t, strings.HasSuffix(got.URL.Path, "/directions/json"))
	q := got.URL.Query()
	assert.Equal(t, seattle.String(), q.Get("origin"))
	assert.Equal(t, portland.String(), q.Get("destination"))
	assert.Equal(t, "bicycling", q.Get("mode"))
	assert.Equal(t, "test-api-key", q.Get("key"))
}

func TestDirectionsClient_ZeroResults(t *testing.T) {
	server := newDirectionsServer(t, "directions_zero_results.json", nil)

	client, err := NewDirectionsClient("test-api-key", server.URL, 5*time.Second)
	require.NoError(t, err)

	resp, err := client.Directions(context.Background(), seattle, portland, routing.Bicycling)
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestDirectionsClient_RequiresKey(t *testing.T) {
	_, err := NewDirectionsClient("", "", 0)
	assert.Error(t, err)
}
