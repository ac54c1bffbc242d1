package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/nelssec/llm-workflows/pkg/models"
)

const DefaultBaseURL = "https://api.open-meteo.com"

// Client reads current conditions from the Open-Meteo forecast API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(baseURL string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type forecastResponse struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	CurrentUnits struct {
		Temperature string `json:"temperature_2m"`
	} `json:"current_units"`
	Current struct {
		Time        string  `json:"time"`
		Temperature float64 `json:"temperature_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

func (c *Client) Current(ctx context.Context, latitude, longitude float64) (*models.Weather, error) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return nil, errors.Newf("coordinates out of range: %.4f, %.4f", latitude, longitude)
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	params.Set("current", "temperature_2m,wind_speed_10m")
	path := "/v1/forecast?" + params.Encode()

	c.logger.Debug().Str("path", path).Msg("fetching current weather")

	var resp forecastResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to get weather")
	}

	w := &models.Weather{
		Latitude:    resp.Latitude,
		Longitude:   resp.Longitude,
		Temperature: resp.Current.Temperature,
		WindSpeed:   resp.Current.WindSpeed,
		Units:       resp.CurrentUnits.Temperature,
	}
	// Open-Meteo reports local ISO 8601 without seconds or zone.
	if t, err := time.Parse("2006-01-02T15:04", resp.Current.Time); err == nil {
		w.Time = t
	}

	return w, nil
}

func (c *Client) getJSON(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%s", c.baseURL, path), nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.Newf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
