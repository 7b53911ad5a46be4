package pipedrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"sheetsync-core-pipedrive-layer/internal/domain"
	"sheetsync-core-pipedrive-layer/internal/ports"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.pipedrive.com/v1"

// pageSize is the maximum records per list page accepted by the API.
const pageSize = 500

// fieldEndpoints maps entity types to their field-definition endpoints.
// Leads share the deal field space.
var fieldEndpoints = map[domain.EntityType]string{
	domain.EntityDeals:         "dealFields",
	domain.EntityPersons:       "personFields",
	domain.EntityOrganizations: "organizationFields",
	domain.EntityActivities:    "activityFields",
	domain.EntityLeads:         "dealFields",
	domain.EntityProducts:      "productFields",
}

type client struct {
	baseURL     string
	apiToken    string
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retryConfig RetryConfig
	logger      zerolog.Logger
}

// NewClient creates a new Pipedrive client adapter.
func NewClient(apiToken string) ports.CRMClient {
	return NewClientWithOptions(DefaultBaseURL, apiToken, nil, DefaultRetryConfig(), zerolog.Nop())
}

// NewClientWithOptions creates a client with rate limiting and retry
// options. An empty baseURL falls back to the production host.
func NewClientWithOptions(
	baseURL, apiToken string,
	rateLimiter *RateLimiter,
	retryConfig RetryConfig,
	logger zerolog.Logger,
) ports.CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &client{
		baseURL:     baseURL,
		apiToken:    apiToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		rateLimiter: rateLimiter,
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// envelope is the API's uniform response wrapper.
type envelope struct {
	Success        bool            `json:"success"`
	Data           json.RawMessage `json:"data"`
	Error          string          `json:"error"`
	AdditionalData *struct {
		Pagination *struct {
			MoreItemsInCollection bool `json:"more_items_in_collection"`
			NextStart             int  `json:"next_start"`
		} `json:"pagination"`
	} `json:"additional_data"`
}

func (c *client) FetchRecords(ctx context.Context, entity domain.EntityType, filterID int, limit int) ([]domain.Record, error) {
	var records []domain.Record
	start := 0

	for {
		query := url.Values{}
		if filterID > 0 {
			query.Set("filter_id", strconv.Itoa(filterID))
		}
		query.Set("start", strconv.Itoa(start))
		remaining := pageSize
		if limit > 0 && limit-len(records) < remaining {
			remaining = limit - len(records)
		}
		query.Set("limit", strconv.Itoa(remaining))

		env, err := c.call(ctx, http.MethodGet, string(entity), query, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", entity, err)
		}

		var page []domain.Record
		if len(env.Data) > 0 && string(env.Data) != "null" {
			if err := json.Unmarshal(env.Data, &page); err != nil {
				return nil, fmt.Errorf("failed to decode %s list: %w", entity, err)
			}
		}
		records = append(records, page...)

		if limit > 0 && len(records) >= limit {
			records = records[:limit]
			break
		}
		if env.AdditionalData == nil || env.AdditionalData.Pagination == nil ||
			!env.AdditionalData.Pagination.MoreItemsInCollection {
			break
		}
		start = env.AdditionalData.Pagination.NextStart
	}

	c.logger.Debug().
		Str("entity", string(entity)).
		Int("filterId", filterID).
		Int("records", len(records)).
		Msg("Fetched records")
	return records, nil
}

func (c *client) UpdateRecord(ctx context.Context, entity domain.EntityType, id string, payload map[string]any) (domain.Record, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode update payload: %w", err)
	}

	env, err := c.call(ctx, http.MethodPut, string(entity)+"/"+url.PathEscape(id), nil, body)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s %s: %w", entity, id, err)
	}

	var updated domain.Record
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &updated); err != nil {
			return nil, fmt.Errorf("failed to decode updated %s: %w", entity, err)
		}
	}
	return updated, nil
}

func (c *client) FieldDefinitions(ctx context.Context, entity domain.EntityType) ([]domain.FieldDefinition, error) {
	endpoint, ok := fieldEndpoints[entity]
	if !ok {
		return nil, &domain.ConfigError{Op: "field definitions", Reason: "unknown entity type " + string(entity)}
	}

	env, err := c.call(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}

	var defs []domain.FieldDefinition
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &defs); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", endpoint, err)
		}
	}
	return defs, nil
}

// call performs one API request with rate limiting and retry on throttled
// or server-side failures. Client errors (4xx other than 429) surface
// immediately as RemoteError.
func (c *client) call(ctx context.Context, method, path string, query url.Values, body []byte) (*envelope, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryConfig.backoff(attempt - 1)
			c.logger.Warn().
				Str("path", path).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("Retrying API request")
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}

		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		env, retryable, err := c.doOnce(ctx, method, path, query, body)
		if err == nil {
			return env, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *client) doOnce(ctx context.Context, method, path string, query url.Values, body []byte) (*envelope, bool, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_token", c.apiToken)
	endpoint := c.baseURL + "/" + path + "?" + query.Encode()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// transport failures are retryable
		return nil, true, &domain.RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &domain.RemoteError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	var env envelope
	if jerr := json.Unmarshal(raw, &env); jerr != nil && resp.StatusCode < 300 {
		return nil, false, &domain.RemoteError{StatusCode: resp.StatusCode, Message: "malformed response body"}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, &domain.RemoteError{StatusCode: resp.StatusCode, Message: "rate limit exceeded"}
	case resp.StatusCode >= 500:
		return nil, true, &domain.RemoteError{StatusCode: resp.StatusCode, Message: apiMessage(env, raw)}
	case resp.StatusCode >= 300:
		return nil, false, &domain.RemoteError{StatusCode: resp.StatusCode, Message: apiMessage(env, raw)}
	case !env.Success:
		return nil, false, &domain.RemoteError{StatusCode: resp.StatusCode, Message: apiMessage(env, raw)}
	}
	return &env, false, nil
}

func apiMessage(env envelope, raw []byte) string {
	if env.Error != "" {
		return env.Error
	}
	if len(raw) > 0 {
		const maxLen = 200
		if len(raw) > maxLen {
			raw = raw[:maxLen]
		}
		return string(raw)
	}
	return "unknown error"
}
