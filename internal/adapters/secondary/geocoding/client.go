package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
	"golang.org/x/time/rate"
)

// errRetryable временная ошибка источника, запрос стоит повторить
var errRetryable = errors.New("retryable geocoding failure")

// Client геокодер: Nominatim, затем Google, если задан ключ
type Client struct {
	cfg        *Config
	HTTPClient *http.Client
	Log        *slog.Logger
	limiter    *rate.Limiter
	backoff    time.Duration
}

// NewClient создаёт геокодер
func NewClient(cfg *Config, log *slog.Logger) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		cfg:        cfg,
		HTTPClient: &http.Client{Timeout: cfg.timeout()},
		Log:        log,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		backoff:    time.Duration(cfg.BackoffSec) * time.Second,
	}
}

var _ service.IGeocoder = (*Client)(nil)

// Geocode ищет место и определяет таймзону
func (c *Client) Geocode(ctx context.Context, query string) (*domain.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.GeocodingError{Query: query, Reason: "empty location"}
	}

	loc, err := c.withRetry(ctx, "nominatim", func(ctx context.Context) (*domain.Location, error) {
		return c.nominatim(ctx, query)
	})
	if err != nil {
		c.Log.Warn("nominatim geocoding failed", "error", err, "query", query)
	}

	if loc == nil && c.cfg.GoogleAPIKey != "" {
		c.Log.Info("nominatim found nothing, trying google geocoding", "query", query)
		loc, err = c.withRetry(ctx, "google", func(ctx context.Context) (*domain.Location, error) {
			return c.google(ctx, query)
		})
		if err != nil {
			c.Log.Warn("google geocoding failed", "error", err, "query", query)
		}
	}

	if loc == nil {
		if err != nil && errors.Is(err, errRetryable) {
			return nil, &domain.GeocodingError{Query: query, Reason: "location service is unavailable, please try again"}
		}
		return nil, &domain.GeocodingError{Query: query, Reason: "no matching place, try adding the country"}
	}

	loc.Timezone = c.timezone(ctx, loc.Latitude, loc.Longitude)
	c.Log.Info("location geocoded",
		"query", query,
		"latitude", loc.Latitude,
		"longitude", loc.Longitude,
		"timezone", loc.Timezone)
	return loc, nil
}

// withRetry повторяет временные сбои с экспоненциальной задержкой
func (c *Client) withRetry(ctx context.Context, source string, fn func(context.Context) (*domain.Location, error)) (*domain.Location, error) {
	var lastErr error
	delay := c.backoff
	for attempt := 1; attempt <= c.cfg.attempts(); attempt++ {
		loc, err := fn(ctx)
		if err == nil || !errors.Is(err, errRetryable) {
			return loc, err
		}
		lastErr = err
		if attempt == c.cfg.attempts() {
			break
		}
		c.Log.Debug("geocoding attempt failed, retrying", "source", source, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (c *Client) nominatim(ctx context.Context, query string) (*domain.Location, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")

	var results []nominatimResult
	if err := c.getJSON(ctx, c.cfg.NominatimURL+"?"+params.Encode(), &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}
	return &domain.Location{City: cityName(results[0].DisplayName, query), Latitude: lat, Longitude: lon}, nil
}

type googleGeocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *Client) google(ctx context.Context, query string) (*domain.Location, error) {
	params := url.Values{}
	params.Set("address", query)
	params.Set("key", c.cfg.GoogleAPIKey)

	var resp googleGeocodeResponse
	if err := c.getJSON(ctx, c.cfg.GoogleURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		return nil, nil
	}
	r := resp.Results[0]
	return &domain.Location{
		City:      cityName(r.FormattedAddress, query),
		Latitude:  r.Geometry.Location.Lat,
		Longitude: r.Geometry.Location.Lng,
	}, nil
}

type googleTimezoneResponse struct {
	Status     string `json:"status"`
	TimeZoneID string `json:"timeZoneId"`
}

// timezone IANA зона через Google, без ключа грубая зона по долготе
func (c *Client) timezone(ctx context.Context, lat, lon float64) string {
	if c.cfg.GoogleAPIKey != "" {
		params := url.Values{}
		params.Set("location", fmt.Sprintf("%f,%f", lat, lon))
		params.Set("timestamp", strconv.FormatInt(time.Now().Unix(), 10))
		params.Set("key", c.cfg.GoogleAPIKey)

		var resp googleTimezoneResponse
		err := c.getJSON(ctx, c.cfg.GoogleTzURL+"?"+params.Encode(), &resp)
		if err == nil && resp.Status == "OK" && resp.TimeZoneID != "" {
			return resp.TimeZoneID
		}
		c.Log.Warn("timezone lookup failed, using longitude offset", "error", err, "status", resp.Status)
	}
	return domain.OffsetTimezone(lon)
}

func (c *Client) getJSON(ctx context.Context, rawURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", errRetryable, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", errRetryable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoding error [status=%d]", resp.StatusCode)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode geocoding response: %w", err)
	}
	return nil
}

// cityName первая часть полного адреса, иначе исходный запрос
func cityName(display, query string) string {
	if display == "" {
		return query
	}
	if i := strings.Index(display, ","); i > 0 {
		return strings.TrimSpace(display[:i])
	}
	return display
}
