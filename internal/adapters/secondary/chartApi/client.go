package chartApi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
)

const (
	GetNatalChart = "charts/natal"
	GetTransits   = "charts/transits"
	GetSynastry   = "charts/synastry"
	GetPositions  = "data/positions"
)

// truncateString обрезает строку до указанной длины
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Client клиент движка эфемерид, реализует service.IChartEngine
type Client struct {
	cfg        *Config
	HTTPClient *http.Client
	Log        *slog.Logger
}

// NewClient создаёт новый клиент движка
func NewClient(cfg *Config, log *slog.Logger) *Client {
	transport := &http.Transport{}

	if cfg.ShouldSkipSSL() {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &Client{
		cfg: cfg,
		HTTPClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout(),
		},
		Log: log,
	}
}

var _ service.IChartEngine = (*Client)(nil)

// buildURL собирает полный URL из BaseURL, ApiVersion и endpoint
func (c *Client) buildURL(endpoint string) string {
	baseURL := strings.TrimSuffix(c.cfg.BaseURL, "/")
	return baseURL + "/" + path.Join(c.cfg.ApiVersion, endpoint)
}

// setHeaders устанавливает стандартные заголовки для запросов к API
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.ApiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.ApiKey)
	}
}

func (c *Client) options() ChartOptions {
	return ChartOptions{
		HouseSystem:  c.cfg.HouseSystem,
		ZodiacType:   c.cfg.ZodiacType,
		ActivePoints: domain.Planets,
		Precision:    2,
	}
}

// post отправляет запрос и разбирает общий конверт ответа
func (c *Client) post(ctx context.Context, endpoint string, payload any) (*ChartBody, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	url := c.buildURL(endpoint)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	c.setHeaders(httpReq)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	rawJSON := string(body)

	if resp.StatusCode != http.StatusOK {
		// Ошибка внешнего API - Debug
		c.Log.Debug("chart engine returned non-200 status",
			"endpoint", endpoint,
			"status_code", resp.StatusCode,
			"body_preview", truncateString(rawJSON, 200),
		)
		return nil, fmt.Errorf("chart engine error [status=%d]: %s", resp.StatusCode, truncateString(rawJSON, 500))
	}

	var chartResp Response
	if err := json.Unmarshal(body, &chartResp); err != nil {
		c.Log.Debug("failed to unmarshal chart engine response",
			"endpoint", endpoint,
			"error", err,
			"body_preview", truncateString(rawJSON, 200),
		)
		return nil, fmt.Errorf("chart engine unmarshal failed: %w", err)
	}

	if chartResp.Status != "" && chartResp.Status != "success" {
		return nil, fmt.Errorf("chart engine returned error: status=%s, code=%d, message=%s",
			chartResp.Status, chartResp.Code, chartResp.Message)
	}
	if chartResp.Data == nil {
		return nil, errors.New("chart engine returned empty data")
	}
	return chartResp.Data, nil
}

// NatalChart рассчитывает натальную карту
func (c *Client) NatalChart(ctx context.Context, req service.ChartRequest) (*domain.ChartData, error) {
	body, err := c.post(ctx, GetNatalChart, NatalChartRequest{
		Subject: Person{Name: "User", BirthData: toBirthData(req)},
		Options: c.options(),
	})
	if err != nil {
		return nil, err
	}
	if len(body.Planets) == 0 {
		return nil, errors.New("chart engine returned chart without planets")
	}
	return c.toChart(body), nil
}

// Transits аспекты транзитов к натальной карте
func (c *Client) Transits(ctx context.Context, natal *domain.ChartData, at service.ChartRequest) (*domain.TransitData, error) {
	body, err := c.post(ctx, GetTransits, TransitsRequest{
		Natal:   fromNatal(natal),
		Transit: Person{Name: "Transit", BirthData: toBirthData(at)},
		Options: c.options(),
	})
	if err != nil {
		return nil, err
	}
	return &domain.TransitData{
		Date:    at.Date,
		Aspects: toAspects(body.Aspects),
	}, nil
}

// Synastry межкартовые аспекты
func (c *Client) Synastry(ctx context.Context, natal *domain.ChartData, partner service.ChartRequest) ([]domain.Aspect, error) {
	body, err := c.post(ctx, GetSynastry, SynastryRequest{
		Natal:   fromNatal(natal),
		Partner: Person{Name: "Partner", BirthData: toBirthData(partner)},
		Options: c.options(),
	})
	if err != nil {
		return nil, err
	}
	return toAspects(body.Aspects), nil
}

// Positions положения планет на момент времени в UTC
func (c *Client) Positions(ctx context.Context, at time.Time) ([]domain.PlanetPlacement, error) {
	at = at.UTC()
	body, err := c.post(ctx, GetPositions, PositionsRequest{
		Subject: Person{Name: "Now", BirthData: BirthData{
			Year:     at.Year(),
			Month:    int(at.Month()),
			Day:      at.Day(),
			Hour:     at.Hour(),
			Minute:   at.Minute(),
			Timezone: "UTC",
		}},
		Options: c.options(),
	})
	if err != nil {
		return nil, err
	}
	return toPlanets(body.Planets), nil
}
