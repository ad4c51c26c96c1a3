package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
)

const defaultWeatherBaseURL = "http://api.openweathermap.org/data/2.5"

// WeatherClient fetches current conditions plus a filtered 5-day forecast
// from OpenWeatherMap.
type WeatherClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewWeatherClient builds a client; baseURL may be empty for the production
// endpoint.
func NewWeatherClient(apiKey, baseURL string, timeout time.Duration) *WeatherClient {
	if baseURL == "" {
		baseURL = defaultWeatherBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeatherClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// WeatherPayload is the cached shape handed to prompt construction.
type WeatherPayload struct {
	Location string          `json:"location"`
	Current  CurrentWeather  `json:"current"`
	Forecast []ForecastPoint `json:"forecast"`
}

// CurrentWeather summarizes right-now conditions in metric units.
type CurrentWeather struct {
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feelsLike"`
	Description string  `json:"description"`
}

// ForecastPoint is one sampled forecast slot.
type ForecastPoint struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	Description string    `json:"description"`
}

// Fetch returns the combined current+forecast payload for the city.
func (c *WeatherClient) Fetch(ctx context.Context, location string) (json.RawMessage, error) {
	current, err := c.currentWeather(ctx, location)
	if err != nil {
		return nil, err
	}

	forecast, err := c.forecast(ctx, location)
	if err != nil {
		return nil, err
	}

	payload := WeatherPayload{
		Location: current.name,
		Current:  current.weather,
		Forecast: forecast,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal weather payload: %w", err)
	}
	return raw, nil
}

type currentResult struct {
	name    string
	weather CurrentWeather
}

func (c *WeatherClient) currentWeather(ctx context.Context, city string) (currentResult, error) {
	var body struct {
		Name string `json:"name"`
		Sys  struct {
			Country string `json:"country"`
		} `json:"sys"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}
	if err := c.getJSON(ctx, "/weather", city, &body); err != nil {
		return currentResult{}, err
	}

	description := ""
	if len(body.Weather) > 0 {
		description = body.Weather[0].Description
	}
	return currentResult{
		name: fmt.Sprintf("%s, %s", body.Name, body.Sys.Country),
		weather: CurrentWeather{
			Temperature: body.Main.Temp,
			FeelsLike:   body.Main.FeelsLike,
			Description: description,
		},
	}, nil
}

// forecastSampleHours keeps morning, afternoon and evening slots; the raw
// 3-hourly feed is too noisy for prompt context.
var forecastSampleHours = map[int]bool{9: true, 15: true, 21: true}

const forecastDayLimit = 5

func (c *WeatherClient) forecast(ctx context.Context, city string) ([]ForecastPoint, error) {
	var body struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
			} `json:"weather"`
		} `json:"list"`
	}
	if err := c.getJSON(ctx, "/forecast", city, &body); err != nil {
		return nil, err
	}

	byDay := map[string][]ForecastPoint{}
	for _, entry := range body.List {
		ts := time.Unix(entry.Dt, 0).UTC()
		if !forecastSampleHours[ts.Hour()] {
			continue
		}
		description := ""
		if len(entry.Weather) > 0 {
			description = entry.Weather[0].Description
		}
		day := ts.Format("2006-01-02")
		byDay[day] = append(byDay[day], ForecastPoint{
			Time:        ts,
			Temperature: entry.Main.Temp,
			Description: description,
		})
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	if len(days) > forecastDayLimit {
		days = days[:forecastDayLimit]
	}

	points := make([]ForecastPoint, 0, len(days)*len(forecastSampleHours))
	for _, day := range days {
		points = append(points, byDay[day]...)
	}
	return points, nil
}

func (c *WeatherClient) getJSON(ctx context.Context, path, city string, out any) error {
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weather api status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode weather response: %w", err)
	}
	return nil
}
