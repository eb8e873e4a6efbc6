// internal/geo/client.go
package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/homedar/homedar-backend/internal/config"
)

// Location is the result of a forward (IP) lookup. Empty strings and nil
// coordinates mean the provider had no data; lookups never fail loudly.
type Location struct {
	Country   string
	City      string
	Latitude  *float64
	Longitude *float64
}

// Lookuper resolves coarse locations from IPs and coordinates. The HTTP
// client below is the production implementation; tests inject fakes.
type Lookuper interface {
	Forward(ctx context.Context, ip string) Location
	Reverse(ctx context.Context, lat, lon float64) (country, city string)
}

// Client talks to the configured forward/reverse geocoding providers.
//
// Retry contract, shared by both lookups: on 429 or 5xx sleep a fixed
// interval and retry the same request, giving up once total elapsed time
// exceeds the configured ceiling. Any other non-success status or transport
// failure ends the lookup immediately with no data.
type Client struct {
	cfg        config.GeoConfig
	httpClient *http.Client

	// stubbed in tests
	sleep func(time.Duration)
	now   func() time.Time
}

func NewClient(cfg config.GeoConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		sleep: time.Sleep,
		now:   time.Now,
	}
}

// Forward resolves an IP address to a coarse location.
func (c *Client) Forward(ctx context.Context, ip string) Location {
	if ip == "" {
		return Location{}
	}

	lookupURL := strings.ReplaceAll(c.cfg.ForwardEndpoint, "{ip}", url.PathEscape(ip))

	data, ok := c.getWithRetry(ctx, lookupURL, nil)
	if !ok {
		return Location{}
	}

	// Field names vary across free IP providers (ipapi, ipinfo, ...).
	loc := Location{
		Country: firstString(data, "country_name", "country", "country_code"),
		City:    firstString(data, "city", "region"),
	}
	if lat, ok := firstFloat(data, "latitude", "lat"); ok {
		loc.Latitude = &lat
	}
	if lon, ok := firstFloat(data, "longitude", "lon", "lng"); ok {
		loc.Longitude = &lon
	}
	return loc
}

// Reverse resolves coordinates to a country and city name.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, string) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "jsonv2")

	data, ok := c.getWithRetry(ctx, c.cfg.ReverseEndpoint, params)
	if !ok {
		return "", ""
	}

	address, _ := data["address"].(map[string]interface{})
	if address == nil {
		return "", ""
	}

	country := firstString(address, "country")
	city := firstString(address, "city", "town", "village", "state")
	return country, city
}

// getWithRetry performs the bounded-retry GET shared by both lookups.
func (c *Client) getWithRetry(ctx context.Context, rawURL string, params url.Values) (map[string]interface{}, bool) {
	maxWait := time.Duration(c.cfg.MaxLookupWait) * time.Second
	retrySleep := time.Duration(c.cfg.RetrySleep) * time.Second

	requestURL := rawURL
	if len(params) > 0 {
		if strings.Contains(rawURL, "?") {
			requestURL = rawURL + "&" + params.Encode()
		} else {
			requestURL = rawURL + "?" + params.Encode()
		}
	}

	start := c.now()

	for {
		if c.now().Sub(start) > maxWait {
			logrus.WithField("url", rawURL).Warnf("Geo lookup exceeded max wait of %s", maxWait)
			return nil, false
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			logrus.WithError(err).Warn("Failed to build geo lookup request")
			return nil, false
		}
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Transport failures are not retried.
			logrus.WithError(err).Warn("Geo lookup request failed")
			return nil, false
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			resp.Body.Close()
			logrus.WithField("status", resp.StatusCode).Info("Geo provider rate-limited or unavailable, retrying")
			c.sleep(retrySleep)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			logrus.WithField("status", resp.StatusCode).Warn("Geo provider returned unexpected status")
			return nil, false
		}

		var data map[string]interface{}
		err = json.NewDecoder(resp.Body).Decode(&data)
		resp.Body.Close()
		if err != nil {
			logrus.WithError(err).Warn("Failed to parse geo provider response")
			return nil, false
		}

		return data, true
	}
}

func firstString(data map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstFloat(data map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := data[key].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
