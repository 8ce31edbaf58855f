package district

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// censusGeographyKeys are tried in order, newest districts first.
var censusGeographyKeys = []string{
	"119th Congressional Districts",
	"118th Congressional Districts",
}

type censusGeography struct {
	STUSAB string `json:"STUSAB"`
	CD119  string `json:"CD119"`
	CD118  string `json:"CD118"`
}

type censusResponse struct {
	Result struct {
		AddressMatches []struct {
			Geographies map[string][]censusGeography `json:"geographies"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// CensusClient queries the Census Bureau geocoder for a ZIP code's
// congressional district.
type CensusClient struct {
	client  *http.Client
	baseURL string
}

func NewCensusClient(baseURL string, timeout time.Duration) *CensusClient {
	return &CensusClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Lookup returns the district for zip in "ST-N" or "ST-AL" form. ok is false
// when the geocoder had no district for it.
func (c *CensusClient) Lookup(ctx context.Context, zip string) (string, bool, error) {
	query := url.Values{}
	query.Set("zip", zip)
	query.Set("benchmark", "Public_AR_Current")
	query.Set("vintage", "Current_Current")
	query.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("census request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("failed to read census response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var parsed censusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("failed to parse census response: %w", err)
	}

	if len(parsed.Result.AddressMatches) == 0 {
		return "", false, nil
	}

	geographies := parsed.Result.AddressMatches[0].Geographies
	for _, key := range censusGeographyKeys {
		matches := geographies[key]
		if len(matches) == 0 {
			continue
		}
		if district, ok := formatCensusDistrict(matches[0]); ok {
			return district, true, nil
		}
	}

	return "", false, nil
}

func formatCensusDistrict(g censusGeography) (string, bool) {
	state := strings.ToUpper(strings.TrimSpace(g.STUSAB))
	code := g.CD119
	if code == "" {
		code = g.CD118
	}
	if state == "" || code == "" {
		return "", false
	}

	if code == "00" {
		return state + "-AL", true
	}

	number := strings.TrimLeft(code, "0")
	if number == "" {
		return "", false
	}
	return state + "-" + number, true
}
