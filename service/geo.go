package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geoSnippetN = 120

// Whereabouts is a coarse guess of where the user is, used to suggest config
// defaults.
type Whereabouts struct {
	City     string
	Region   string
	Country  string
	Timezone string
	Source   string
}

// LocationQuery renders the guess the way showtime searches expect it,
// e.g. "Austin, Texas".
func (w Whereabouts) LocationQuery() string {
	parts := []string{}
	for _, p := range []string{w.City, w.Region} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type geoProvider struct {
	name     string
	endpoint string
	parse    func([]byte) (Whereabouts, error)
}

var geoProviders = []geoProvider{
	{name: "ipapi", endpoint: "https://ipapi.co/json/", parse: parseIPAPI},
	{name: "ipwhois", endpoint: "https://ipwho.is/", parse: parseIPWhoIs},
	{name: "ipinfo", endpoint: "https://ipinfo.io/json", parse: parseIPInfo},
}

// DetectWhereabouts asks public IP geolocation services in turn and returns
// the first usable answer.
func DetectWhereabouts(ctx context.Context, httpClient *http.Client) (Whereabouts, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	return detectWithProviders(ctx, httpClient, geoProviders)
}

func detectWithProviders(ctx context.Context, httpClient *http.Client, providers []geoProvider) (Whereabouts, error) {
	if len(providers) == 0 {
		return Whereabouts{}, errors.New("no location providers configured")
	}

	var failures []string
	for _, provider := range providers {
		w, err := detectFromProvider(ctx, httpClient, provider)
		if err == nil {
			return w, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Whereabouts{}, err
		}
		failures = append(failures, fmt.Sprintf("%s: %s", provider.name, err.Error()))
	}
	return Whereabouts{}, fmt.Errorf("all location providers failed (%s)", strings.Join(failures, " | "))
}

func detectFromProvider(ctx context.Context, httpClient *http.Client, provider geoProvider) (Whereabouts, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.endpoint, nil)
	if err != nil {
		return Whereabouts{}, fmt.Errorf("create location request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)

	res, err := httpClient.Do(req)
	if err != nil {
		return Whereabouts{}, fmt.Errorf("location request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		if msg := compactSnippet(string(snippet)); msg != "" {
			return Whereabouts{}, fmt.Errorf("%s: %s", res.Status, msg)
		}
		return Whereabouts{}, errors.New(res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return Whereabouts{}, fmt.Errorf("read location response: %w", err)
	}
	w, err := provider.parse(body)
	if err != nil {
		return Whereabouts{}, err
	}
	if strings.TrimSpace(w.City) == "" {
		return Whereabouts{}, errors.New("provider returned no city")
	}
	w.Source = provider.name
	return w, nil
}

func parseIPAPI(body []byte) (Whereabouts, error) {
	var payload struct {
		City     string `json:"city"`
		Region   string `json:"region"`
		Country  string `json:"country_name"`
		Timezone string `json:"timezone"`
		Error    bool   `json:"error"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Whereabouts{}, fmt.Errorf("decode location response: %w", err)
	}
	if payload.Error {
		if payload.Reason == "" {
			payload.Reason = "unknown error"
		}
		return Whereabouts{}, errors.New(payload.Reason)
	}
	return Whereabouts{City: payload.City, Region: payload.Region, Country: payload.Country, Timezone: payload.Timezone}, nil
}

func parseIPWhoIs(body []byte) (Whereabouts, error) {
	var payload struct {
		Success  bool   `json:"success"`
		Message  string `json:"message"`
		City     string `json:"city"`
		Region   string `json:"region"`
		Country  string `json:"country"`
		Timezone struct {
			ID string `json:"id"`
		} `json:"timezone"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Whereabouts{}, fmt.Errorf("decode location response: %w", err)
	}
	if !payload.Success {
		if strings.TrimSpace(payload.Message) == "" {
			payload.Message = "provider returned unsuccessful response"
		}
		return Whereabouts{}, errors.New(payload.Message)
	}
	return Whereabouts{City: payload.City, Region: payload.Region, Country: payload.Country, Timezone: payload.Timezone.ID}, nil
}

func parseIPInfo(body []byte) (Whereabouts, error) {
	var payload struct {
		City     string `json:"city"`
		Region   string `json:"region"`
		Country  string `json:"country"`
		Timezone string `json:"timezone"`
		Bogon    bool   `json:"bogon"`
		Error    struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Whereabouts{}, fmt.Errorf("decode location response: %w", err)
	}
	if payload.Bogon {
		return Whereabouts{}, errors.New("bogon IP")
	}
	if payload.Error.Message != "" {
		return Whereabouts{}, errors.New(payload.Error.Message)
	}
	return Whereabouts{City: payload.City, Region: payload.Region, Country: payload.Country, Timezone: payload.Timezone}, nil
}

// compactSnippet squeezes an error body into one short line, dropping HTML.
func compactSnippet(raw string) string {
	text := strings.TrimSpace(raw)
	lower := strings.ToLower(text)
	if text == "" || strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype") {
		return ""
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > geoSnippetN {
		text = text[:geoSnippetN]
	}
	return text
}
