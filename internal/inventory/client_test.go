package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slaveloan-backend/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.InventoryConfig{
		URL:     serverURL,
		Headers: map[string]string{"Authorization": "Bearer test-token"},
		Timeout: 5 * time.Second,
	})
}

func TestFreeHostsFiltersBySlaveType(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/hosts", r.URL.Path)
		assert.Equal(t, "free", r.URL.Query().Get("state"))

		resp := hostsResponse{Hosts: []Host{
			{FQDN: "b-2008-ix-0042.build.example.com", IPAddress: "10.0.0.42", State: "free"},
			{FQDN: "w64-ix-slave12.build.example.com", IPAddress: "10.0.0.12", State: "free"},
			{FQDN: "tst-linux64-ec2-301.test.example.com", IPAddress: "10.0.1.31", State: "free"},
		}}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	hosts, err := newTestClient(server.URL).FreeHosts(context.Background(), "b-2008-ix")
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)

	fqdns := make([]string, len(hosts))
	for i, h := range hosts {
		fqdns[i] = h.FQDN
	}
	assert.ElementsMatch(t, []string{
		"b-2008-ix-0042.build.example.com",
		"w64-ix-slave12.build.example.com",
	}, fqdns)
}

func TestFreeHostsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "inventory is down", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FreeHosts(context.Background(), "b-2008-ix")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestReserve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/hosts/b-2008-ix-0042.build.example.com/reserve", r.URL.Path)

		var payload map[string]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, int64(7), payload["loan_id"])

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := newTestClient(server.URL).Reserve(context.Background(), "b-2008-ix-0042.build.example.com", 7)
	assert.NoError(t, err)
}

func TestReserveConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	err := newTestClient(server.URL).Reserve(context.Background(), "b-2008-ix-0042.build.example.com", 7)
	assert.ErrorIs(t, err, ErrHostTaken)
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "b-2008-ix-0042", shortName("b-2008-ix-0042.build.example.com"))
	assert.Equal(t, "bare-host", shortName("bare-host"))
}
