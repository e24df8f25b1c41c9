// Package inventory talks to the machine inventory service that knows which
// physical slaves exist and which of them are free to loan out.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"slaveloan-backend/config"
	"slaveloan-backend/internal/slavetype"
)

// ErrHostTaken is returned when a reservation races with another borrower and
// loses. The caller should move on to the next candidate host.
var ErrHostTaken = errors.New("host already reserved")

// Host is one physical machine as reported by the inventory service.
type Host struct {
	FQDN      string `json:"fqdn"`
	IPAddress string `json:"ipaddress"`
	State     string `json:"state"`
}

type hostsResponse struct {
	Hosts []Host `json:"hosts"`
}

// Client is an HTTP client for the inventory service.
type Client struct {
	cfg    *config.InventoryConfig
	client *http.Client
}

// NewClient creates an inventory client from configuration.
func NewClient(cfg *config.InventoryConfig) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Inventory client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// FreeHosts lists the free hosts whose names match the given canonical slave
// type's globs.
func (c *Client) FreeHosts(ctx context.Context, slaveType string) ([]Host, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(c.cfg.URL, "/")+"/hosts?state=free", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inventory returned status %d: %s", resp.StatusCode, body)
	}

	var decoded hostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode inventory response: %w", err)
	}

	var matched []Host
	for _, h := range decoded.Hosts {
		if slavetype.MatchHost(slaveType, shortName(h.FQDN)) {
			matched = append(matched, h)
		}
	}
	return matched, nil
}

// Reserve marks a host as reserved for a loan. A 409 means another borrower
// got there first.
func (c *Client) Reserve(ctx context.Context, fqdn string, loanID int64) error {
	payload, err := json.Marshal(map[string]int64{"loan_id": loanID})
	if err != nil {
		return fmt.Errorf("failed to marshal reservation payload: %w", err)
	}

	reserveURL := fmt.Sprintf("%s/hosts/%s/reserve", strings.TrimRight(c.cfg.URL, "/"), url.PathEscape(fqdn))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reserveURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("reservation request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		return ErrHostTaken
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inventory returned status %d: %s", resp.StatusCode, body)
	}
}

func (c *Client) setHeaders(req *http.Request) {
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}
}

// shortName strips the domain from an FQDN so it can be matched against the
// hostname globs of the slave-type table.
func shortName(fqdn string) string {
	if i := strings.IndexByte(fqdn, '.'); i > 0 {
		return fqdn[:i]
	}
	return fqdn
}
