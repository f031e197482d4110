package linking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/siherrmann/panoptes/model"
)

const (
	wikidataAPIURL    = "https://www.wikidata.org/w/api.php"
	wikidataSPARQLURL = "https://query.wikidata.org/sparql"
	userAgent         = "panoptes/0.1.0 (https://github.com/siherrmann/panoptes)"

	// MaxSearchResults bounds every entity search to the top candidates
	MaxSearchResults = 5

	requestTimeout = 30 * time.Second
)

// SearchFunc returns knowledge-base candidates for a canonical name
type SearchFunc func(ctx context.Context, name string) ([]model.Candidate, error)

// TypeFetchFunc returns instance-of type descriptors for all given
// identifiers in a single round trip, grouped by identifier
type TypeFetchFunc func(ctx context.Context, ids []string) (map[string][]model.TypeDescriptor, error)

// WikidataClient queries the Wikidata entity search and SPARQL endpoints.
// All network calls share one uniform per-call timeout.
type WikidataClient struct {
	client    *http.Client
	language  string
	limit     int
	apiURL    string
	sparqlURL string
}

// NewWikidataClient creates a client searching in the given language code
func NewWikidataClient(language string) *WikidataClient {
	return &WikidataClient{
		client:    &http.Client{Timeout: requestTimeout},
		language:  language,
		limit:     MaxSearchResults,
		apiURL:    wikidataAPIURL,
		sparqlURL: wikidataSPARQLURL,
	}
}

// Search queries wbsearchentities for items matching name
func (c *WikidataClient) Search(ctx context.Context, name string) ([]model.Candidate, error) {
	params := url.Values{}
	params.Set("action", "wbsearchentities")
	params.Set("search", name)
	params.Set("language", c.language)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("type", "item")

	var payload struct {
		Search []struct {
			ID          string `json:"id"`
			Label       string `json:"label"`
			Description string `json:"description"`
		} `json:"search"`
	}
	if err := c.getJSON(ctx, c.apiURL, params, "", &payload); err != nil {
		return nil, err
	}

	candidates := make([]model.Candidate, 0, len(payload.Search))
	for _, item := range payload.Search {
		candidates = append(candidates, model.Candidate{
			ID:          item.ID,
			Label:       item.Label,
			Description: item.Description,
		})
	}

	return candidates, nil
}

// FetchTypes fetches instance-of types for all ids in a single SPARQL query
func (c *WikidataClient) FetchTypes(ctx context.Context, ids []string) (map[string][]model.TypeDescriptor, error) {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, "wd:"+id)
	}

	query := fmt.Sprintf(`
	SELECT ?item ?type ?typeLabel WHERE {
	  VALUES ?item { %s }
	  ?item wdt:P31 ?type .
	  SERVICE wikibase:label {
	    bd:serviceParam wikibase:language "%s,en" .
	  }
	}
	`, strings.Join(values, " "), c.language)

	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")

	var payload struct {
		Results struct {
			Bindings []struct {
				Item      sparqlValue `json:"item"`
				Type      sparqlValue `json:"type"`
				TypeLabel sparqlValue `json:"typeLabel"`
			} `json:"bindings"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, c.sparqlURL, params, "application/sparql-results+json", &payload); err != nil {
		return nil, err
	}

	typesByID := map[string][]model.TypeDescriptor{}
	for _, row := range payload.Results.Bindings {
		id := lastURIPart(row.Item.Value)
		typeID := lastURIPart(row.Type.Value)
		typeLabel := row.TypeLabel.Value
		if typeLabel == "" {
			typeLabel = typeID
		}
		typesByID[id] = append(typesByID[id], model.TypeDescriptor{ID: typeID, Label: typeLabel})
	}

	return typesByID, nil
}

type sparqlValue struct {
	Value string `json:"value"`
}

func (c *WikidataClient) getJSON(ctx context.Context, endpoint string, params url.Values, accept string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func lastURIPart(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
