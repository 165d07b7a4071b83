// Package water answers "is this coordinate on navigable water" via an HTTP lookup service.
package water

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"boatnav/internal/ports"
)

// ErrBadResponse marks a reply that carries no usable verdict.
var ErrBadResponse = errors.New("water lookup: unusable response")

// Client queries GET {baseURL}/{lat},{lng}.
type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

var _ ports.WaterChecker = (*Client)(nil)

func NewClient(baseURL, accessToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: timeout},
	}
}

// response accepts both field spellings seen in lookup services.
type response struct {
	Water   *bool `json:"water"`
	IsWater *bool `json:"isWater"`
}

func (client *Client) IsWater(ctx context.Context, lat, lng float64) (bool, error) {
	endpoint := fmt.Sprintf("%s/%s,%s", client.baseURL,
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lng, 'f', -1, 64))
	if client.accessToken != "" {
		endpoint += "?" + url.Values{"access_token": {client.accessToken}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("water lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("water lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return false, fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return false, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	switch {
	case body.Water != nil:
		return *body.Water, nil
	case body.IsWater != nil:
		return *body.IsWater, nil
	default:
		return false, fmt.Errorf("%w: no water field", ErrBadResponse)
	}
}
