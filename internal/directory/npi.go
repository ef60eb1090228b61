package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

// NPIClient looks up providers in the NPI registry, widening the search
// via a ZIP place lookup when the postal-code query comes back empty.
type NPIClient struct {
	httpClient *http.Client
	baseURL    string
	zipBaseURL string
	limit      int
	logger     *logging.Logger
}

// NPIConfig holds configuration for the NPI registry client.
type NPIConfig struct {
	BaseURL    string
	ZipBaseURL string
	Timeout    time.Duration
	Limit      int
}

// NewNPIClient creates a provider directory client.
func NewNPIClient(cfg NPIConfig, logger *logging.Logger) *NPIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://npiregistry.cms.hhs.gov/api/"
	}
	if cfg.ZipBaseURL == "" {
		cfg.ZipBaseURL = "https://api.zippopotam.us"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &NPIClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/",
		zipBaseURL: strings.TrimRight(cfg.ZipBaseURL, "/"),
		limit:      cfg.Limit,
		logger:     logger,
	}
}

type npiResult struct {
	Number json.Number `json:"number"`
	Basic  struct {
		Name             string `json:"name"`
		OrganizationName string `json:"organization_name"`
	} `json:"basic"`
	Addresses []struct {
		City       string `json:"city"`
		State      string `json:"state"`
		PostalCode string `json:"postal_code"`
	} `json:"addresses"`
	Taxonomies []struct {
		Desc                string `json:"desc"`
		TaxonomyDescription string `json:"taxonomy_description"`
	} `json:"taxonomies"`
}

type npiResponse struct {
	Results []npiResult `json:"results"`
}

// Search returns up to the configured limit of providers for the
// department near the postal code. The second return value notes when
// results came from a widened ("nearby" or "broader") search. Upstream
// failures degrade to an empty list.
func (c *NPIClient) Search(ctx context.Context, department, postalCode string) ([]Provider, string, error) {
	taxonomy, ok := DepartmentTaxonomy[department]
	if !ok {
		taxonomy = department
	}
	queryLimit := c.limit * 5
	if queryLimit < 20 {
		queryLimit = 20
	}

	params := url.Values{
		"version":     {"2.1"},
		"limit":       {strconv.Itoa(queryLimit)},
		"postal_code": {postalCode},
	}
	results := c.fetch(ctx, params)
	providers := collectProviders(results, taxonomy, c.limit)
	if len(providers) > 0 {
		return providers, MatchExact, nil
	}

	city, state := c.lookupZip(ctx, postalCode)
	if city == "" && state == "" {
		return nil, MatchExact, nil
	}

	fallback := url.Values{
		"version": {"2.1"},
		"limit":   {strconv.Itoa(queryLimit)},
	}
	if state != "" {
		fallback.Set("state", state)
	}
	if city != "" {
		fallback.Set("city", city)
	}
	if taxonomy != "" {
		fallback.Set("taxonomy_description", taxonomy)
	}
	results = c.fetch(ctx, fallback)
	providers = collectProviders(results, taxonomy, c.limit)
	if len(providers) > 0 {
		return providers, MatchNearby, nil
	}

	if taxonomy != "" {
		fallback.Del("taxonomy_description")
		results = c.fetch(ctx, fallback)
		providers = collectProviders(results, "", c.limit)
		if len(providers) > 0 {
			return providers, MatchBroader, nil
		}
	}

	return nil, MatchExact, nil
}

func (c *NPIClient) fetch(ctx context.Context, params url.Values) []npiResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		c.logger.Warn("directory: build npi request failed", "error", err)
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("directory: npi lookup failed", "error", err, "params", params.Encode())
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("directory: npi lookup returned error status", "status", resp.StatusCode)
		return nil
	}

	var payload npiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Warn("directory: decode npi response failed", "error", err)
		return nil
	}
	return payload.Results
}

type zipResponse struct {
	Places []struct {
		PlaceName         string `json:"place name"`
		StateAbbreviation string `json:"state abbreviation"`
	} `json:"places"`
}

// lookupZip resolves a US postal code to (city, state), or ("", "").
func (c *NPIClient) lookupZip(ctx context.Context, postalCode string) (string, string) {
	u := fmt.Sprintf("%s/us/%s", c.zipBaseURL, url.PathEscape(postalCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", ""
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("directory: zip lookup failed", "error", err, "postal_code", postalCode)
		return "", ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ""
	}

	var payload zipResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", ""
	}
	if len(payload.Places) == 0 {
		return "", ""
	}
	return payload.Places[0].PlaceName, payload.Places[0].StateAbbreviation
}

func matchesTaxonomy(item npiResult, target string) bool {
	if target == "" {
		return true
	}
	targetLower := strings.ToLower(target)
	for _, tax := range item.Taxonomies {
		desc := tax.Desc
		if desc == "" {
			desc = tax.TaxonomyDescription
		}
		if strings.Contains(strings.ToLower(desc), targetLower) {
			return true
		}
	}
	return false
}

func collectProviders(results []npiResult, taxonomy string, limit int) []Provider {
	var providers []Provider
	for _, item := range results {
		if !matchesTaxonomy(item, taxonomy) {
			continue
		}
		name := item.Basic.Name
		if name == "" {
			name = item.Basic.OrganizationName
		}
		if name == "" {
			name = "Provider"
		}
		p := Provider{
			NPI:  item.Number.String(),
			Name: name,
		}
		if len(item.Addresses) > 0 {
			p.City = item.Addresses[0].City
			p.State = item.Addresses[0].State
			p.PostalCode = item.Addresses[0].PostalCode
		}
		providers = append(providers, p)
		if len(providers) >= limit {
			break
		}
	}
	return providers
}
