package congress

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

	"github.com/jjenkins/billpulse/internal/config"
	"github.com/jjenkins/billpulse/internal/logger"
)

// errNoData marks a request that finished without usable data: a non-200
// answer or retries exhausted.
var errNoData = errors.New("no data")

// Client talks to the congress.gov v3 API.
type Client struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	retries      int
	retryDelay   time.Duration
	requestDelay time.Duration
	log          *logger.Logger
}

// NewClient creates a congress.gov client from configuration.
func NewClient(cfg config.CongressConfig, log *logger.Logger) *Client {
	retries := cfg.RetryTimes
	if retries < 1 {
		retries = 1
	}
	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		retries:      retries,
		retryDelay:   cfg.RetryDelay,
		requestDelay: cfg.RequestDelay,
		log:          log,
	}
}

// Delay returns the pause to take between bills to stay under the rate limit.
func (c *Client) Delay() time.Duration {
	return c.requestDelay
}

// ListBills fetches one page of bills for a congress, optionally limited to a
// bill type. A nil list means the source had nothing to give.
func (c *Client) ListBills(ctx context.Context, congress int, billType string, offset, limit int) (*BillList, error) {
	path := fmt.Sprintf("/bill/%d", congress)
	if billType != "" {
		path = fmt.Sprintf("/bill/%d/%s", congress, strings.ToLower(billType))
	}

	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	var resp billListResponse
	if err := c.get(ctx, path, query, &resp); err != nil {
		if errors.Is(err, errNoData) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	return &BillList{Bills: resp.Bills, Count: resp.Pagination.Count}, nil
}

// GetBill fetches the detail record for one bill. It returns nil when the
// detail is not available.
func (c *Client) GetBill(ctx context.Context, congress int, billType string, number int) (*BillDetail, error) {
	var resp billDetailResponse
	if err := c.get(ctx, billPath(congress, billType, number, ""), nil, &resp); err != nil {
		if errors.Is(err, errNoData) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch bill detail: %w", err)
	}
	return resp.Bill, nil
}

func (c *Client) GetActions(ctx context.Context, congress int, billType string, number int) ([]Action, error) {
	var resp actionsResponse
	if err := c.getOptional(ctx, billPath(congress, billType, number, "actions"), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch actions: %w", err)
	}
	return resp.Actions, nil
}

func (c *Client) GetSummaries(ctx context.Context, congress int, billType string, number int) ([]Summary, error) {
	var resp summariesResponse
	if err := c.getOptional(ctx, billPath(congress, billType, number, "summaries"), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch summaries: %w", err)
	}
	return resp.Summaries, nil
}

func (c *Client) GetCosponsors(ctx context.Context, congress int, billType string, number int) ([]Member, error) {
	var resp cosponsorsResponse
	if err := c.getOptional(ctx, billPath(congress, billType, number, "cosponsors"), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch cosponsors: %w", err)
	}
	return resp.Cosponsors, nil
}

func (c *Client) GetTextVersions(ctx context.Context, congress int, billType string, number int) ([]TextVersion, error) {
	var resp textResponse
	if err := c.getOptional(ctx, billPath(congress, billType, number, "text"), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch text versions: %w", err)
	}
	return resp.TextVersions, nil
}

func (c *Client) GetCommittees(ctx context.Context, congress int, billType string, number int) ([]Committee, error) {
	var resp committeesResponse
	if err := c.getOptional(ctx, billPath(congress, billType, number, "committees"), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch committees: %w", err)
	}
	return resp.Committees, nil
}

// GetSubjects returns nil when subjects have not been assigned yet.
func (c *Client) GetSubjects(ctx context.Context, congress int, billType string, number int) (*Subjects, error) {
	var resp subjectsResponse
	if err := c.getOptional(ctx, billPath(congress, billType, number, "subjects"), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch subjects: %w", err)
	}
	return resp.Subjects, nil
}

func billPath(congress int, billType string, number int, sub string) string {
	path := fmt.Sprintf("/bill/%d/%s/%d", congress, strings.ToLower(billType), number)
	if sub != "" {
		path += "/" + sub
	}
	return path
}

// getOptional is get for sub-resources, where a missing answer just leaves
// out unchanged.
func (c *Client) getOptional(ctx context.Context, path string, out interface{}) error {
	err := c.get(ctx, path, nil, out)
	if errors.Is(err, errNoData) {
		return nil
	}
	return err
}

// get fetches path and decodes the JSON body into out. Transport errors, 429
// and 5xx answers are retried with a fixed delay; any other non-200 answer is
// final. Both end in errNoData after being logged.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	query.Set("format", "json")
	endpoint := c.baseURL + path + "?" + query.Encode()

	body, status, err := c.fetchWithRetry(ctx, endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("Congress API request failed", map[string]interface{}{
			"path":     path,
			"status":   status,
			"error":    err.Error(),
			"attempts": c.retries,
		})
		return errNoData
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}

	return nil
}

// fetchWithRetry performs an HTTP GET, retrying transient failures up to
// c.retries attempts with c.retryDelay between them.
func (c *Client) fetchWithRetry(ctx context.Context, endpoint string) ([]byte, int, error) {
	var lastErr error
	var lastStatus int

	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, lastStatus, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		lastStatus = resp.StatusCode

		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, resp.StatusCode, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		return body, resp.StatusCode, nil
	}

	return nil, lastStatus, fmt.Errorf("failed after %d attempts: %w", c.retries, lastErr)
}
