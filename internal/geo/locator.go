// Package geo resolves approximate coordinates from a client IP address.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Locator looks up coordinates for an IP address.
type Locator interface {
	Locate(ctx context.Context, ip string) (longitude, latitude float64, err error)
}

// IPStackLocator queries an ipstack-compatible REST endpoint.
type IPStackLocator struct {
	baseURL   string
	accessKey string
	client    *http.Client
}

// NewIPStackLocator returns a locator for the given endpoint and key.
func NewIPStackLocator(baseURL, accessKey string) *IPStackLocator {
	return &IPStackLocator{
		baseURL:   baseURL,
		accessKey: accessKey,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (l *IPStackLocator) Locate(ctx context.Context, ip string) (float64, float64, error) {
	url := fmt.Sprintf("%s/%s?access_key=%s", l.baseURL, ip, l.accessKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geo lookup failed: status %d", resp.StatusCode)
	}

	var body struct {
		Longitude *float64 `json:"longitude"`
		Latitude  *float64 `json:"latitude"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, 0, err
	}
	if body.Longitude == nil || body.Latitude == nil {
		return 0, 0, fmt.Errorf("geo lookup returned no coordinates for %s", ip)
	}
	return *body.Longitude, *body.Latitude, nil
}
