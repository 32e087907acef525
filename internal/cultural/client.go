package cultural

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

	"github.com/aimorme/dateplan-back/internal/cache"
)

var ErrUnavailable = errors.New("cultural client unavailable")

// Entity is one cultural entity (artist, cuisine, venue, ...) returned by
// the provider.
type Entity struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Subtype     string   `json:"subtype,omitempty"`
	Description string   `json:"description,omitempty"`
	Affinity    float64  `json:"affinity,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Address     string   `json:"address,omitempty"`
	PriceLevel  int      `json:"price_level,omitempty"`
}

// SearchParams drives entity resolution: free-text query scoped to the
// user's location.
type SearchParams struct {
	Query    string
	Location string
	Types    []string
	Take     int
}

// InsightsParams drives cross-domain discovery and venue matching. Field
// names mirror the provider's own query parameters.
type InsightsParams struct {
	EntityType     string
	SignalEntities []string
	LocationQuery  string
	Tags           string
	PopularityMin  float64
	PriceLevelMin  int
	PriceLevelMax  int
	Take           int
}

// Discoverer is the cultural-data provider contract consumed by the stage
// executors.
type Discoverer interface {
	Search(ctx context.Context, params SearchParams) ([]Entity, error)
	Insights(ctx context.Context, params InsightsParams) ([]Entity, error)
	Available() bool
}

type ClientConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Cache      *cache.ResponseCache
}

// Client talks to a Qloo-style taste API: /search for entity resolution and
// /v2/insights for recommendations. Responses are memoized through the
// optional cache because the same seed queries repeat across profiles.
type Client struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	cache      *cache.ResponseCache
}

func NewClient(config ClientConfig) *Client {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://hackathon.api.qloo.com"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &Client{
		apiKey:     strings.TrimSpace(config.APIKey),
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		timeout:    config.Timeout,
		httpClient: config.HTTPClient,
		cache:      config.Cache,
	}
}

func (c *Client) Available() bool {
	return c.apiKey != ""
}

func (c *Client) Search(ctx context.Context, params SearchParams) ([]Entity, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(params.Query) == "" {
		return nil, errors.New("search query is required")
	}
	if params.Take <= 0 {
		params.Take = 5
	}

	values := url.Values{}
	values.Set("query", params.Query)
	values.Set("take", strconv.Itoa(params.Take))
	if params.Location != "" {
		values.Set("filter.location", params.Location)
	}
	if len(params.Types) > 0 {
		values.Set("types", strings.Join(params.Types, ","))
	}

	signature := c.signature("search", values.Encode())
	if cached, ok := c.cachedEntities(signature); ok {
		return cached, nil
	}

	body, err := c.get(ctx, "/search", values)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Results []wireEntity `json:"results"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	entities := make([]Entity, 0, len(raw.Results))
	for _, item := range raw.Results {
		entities = append(entities, item.toEntity())
	}
	c.storeEntities(signature, entities)
	return entities, nil
}

func (c *Client) Insights(ctx context.Context, params InsightsParams) ([]Entity, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(params.EntityType) == "" {
		return nil, errors.New("entity type filter is required")
	}
	if params.Take <= 0 {
		params.Take = 10
	}

	values := url.Values{}
	values.Set("filter.type", params.EntityType)
	values.Set("take", strconv.Itoa(params.Take))
	if len(params.SignalEntities) > 0 {
		values.Set("signal.interests.entities", strings.Join(params.SignalEntities, ","))
	}
	if params.LocationQuery != "" {
		values.Set("filter.location.query", params.LocationQuery)
	}
	if params.Tags != "" {
		values.Set("filter.tags", params.Tags)
	}
	if params.PopularityMin > 0 {
		values.Set("filter.popularity.min", strconv.FormatFloat(params.PopularityMin, 'f', -1, 64))
	}
	if params.PriceLevelMin > 0 {
		values.Set("filter.price_level.min", strconv.Itoa(params.PriceLevelMin))
	}
	if params.PriceLevelMax > 0 {
		values.Set("filter.price_level.max", strconv.Itoa(params.PriceLevelMax))
	}

	signature := c.signature("insights", values.Encode())
	if cached, ok := c.cachedEntities(signature); ok {
		return cached, nil
	}

	body, err := c.get(ctx, "/v2/insights", values)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Results struct {
			Entities []wireEntity `json:"entities"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode insights response: %w", err)
	}

	entities := make([]Entity, 0, len(raw.Results.Entities))
	for _, item := range raw.Results.Entities {
		entities = append(entities, item.toEntity())
	}
	c.storeEntities(signature, entities)
	return entities, nil
}

func (c *Client) get(ctx context.Context, path string, values url.Values) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpRequest, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, c.baseURL+path+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create cultural request: %w", err)
	}
	httpRequest.Header.Set("X-Api-Key", c.apiKey)
	httpRequest.Header.Set("Accept", "application/json")

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("cultural provider timeout: %w", context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("cultural transport error: %w", err)
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("read cultural body: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if len(message) > 700 {
			message = message[:700]
		}
		return nil, &HTTPError{StatusCode: httpResponse.StatusCode, Message: message}
	}
	return body, nil
}

func (c *Client) signature(method, encoded string) string {
	if c.cache == nil {
		return ""
	}
	return c.cache.BuildSignature(method, encoded)
}

func (c *Client) cachedEntities(signature string) ([]Entity, bool) {
	if c.cache == nil || signature == "" {
		return nil, false
	}
	entry, ok := c.cache.Get(signature)
	if !ok {
		return nil, false
	}
	var entities []Entity
	if err := json.Unmarshal(entry.Value, &entities); err != nil {
		return nil, false
	}
	return entities, true
}

func (c *Client) storeEntities(signature string, entities []Entity) {
	if c.cache == nil || signature == "" {
		return
	}
	encoded, err := json.Marshal(entities)
	if err != nil {
		return
	}
	c.cache.Set(signature, cache.Entry{Value: encoded})
}

type wireEntity struct {
	EntityID   string `json:"entity_id"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Subtype    string `json:"subtype"`
	Properties struct {
		Description      string `json:"description"`
		ShortDescription string `json:"short_description"`
		Address          string `json:"address"`
		PriceLevel       int    `json:"price_level"`
	} `json:"properties"`
	Location struct {
		Address string `json:"address"`
	} `json:"location"`
	Query struct {
		Affinity float64 `json:"affinity"`
	} `json:"query"`
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
}

func (w wireEntity) toEntity() Entity {
	id := w.EntityID
	if id == "" {
		id = w.ID
	}

	description := w.Properties.Description
	if description == "" {
		description = w.Properties.ShortDescription
	}

	address := w.Location.Address
	if address == "" {
		address = w.Properties.Address
	}

	tags := make([]string, 0, len(w.Tags))
	for _, tag := range w.Tags {
		if tag.Name != "" {
			tags = append(tags, tag.Name)
		}
	}

	return Entity{
		ID:          id,
		Name:        w.Name,
		Subtype:     w.Subtype,
		Description: description,
		Affinity:    w.Query.Affinity,
		Tags:        tags,
		Address:     address,
		PriceLevel:  w.Properties.PriceLevel,
	}
}
