// Package cms looks up topic prompts from the content management service.
package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xiaot623/gogo/tutor/internal/domain"
	"github.com/xiaot623/gogo/tutor/internal/logger"
)

// Topic is the CMS description of what the learner is studying.
type Topic struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Prompt      string          `json:"prompt"`
	Examples    json.RawMessage `json:"examples,omitempty"`
	// Found is false when the default topic was substituted.
	Found bool `json:"-"`
}

// DefaultTopic is used when the CMS is disabled or cannot answer.
func DefaultTopic() Topic {
	return Topic{Name: domain.DefaultTopicName}
}

type promptResponse struct {
	Success bool   `json:"success"`
	Data    *Topic `json:"data"`
}

// Client fetches topic prompts. Lookups never fail; errors degrade to DefaultTopic.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	cache      TopicCache
	cacheTTL   time.Duration
	group      singleflight.Group
	log        *logger.Logger
}

// NewClient creates a CMS client. An empty baseURL disables lookups. cache may be nil.
func NewClient(baseURL string, timeout time.Duration, cache TopicCache, cacheTTL time.Duration, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if cache == nil {
		cache = NopCache{}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

// Enabled reports whether a CMS base URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Lookup resolves topicIDs (comma separated) to a topic.
func (c *Client) Lookup(ctx context.Context, topicIDs string) Topic {
	topicIDs = strings.TrimSpace(topicIDs)
	if !c.Enabled() || topicIDs == "" {
		return DefaultTopic()
	}

	if t, ok, err := c.cache.Get(ctx, topicIDs); err != nil {
		c.log.Warn("topic cache read failed", "topic_ids", topicIDs, "error", err)
	} else if ok {
		t.Found = true
		return t
	}

	// The shared fetch outlives any single caller; each caller only stops waiting on its own ctx.
	ch := c.group.DoChan(topicIDs, func() (interface{}, error) {
		fetchCtx, cancel := c.detached(ctx)
		defer cancel()
		t, err := c.fetch(fetchCtx, topicIDs)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(fetchCtx, topicIDs, t, c.cacheTTL); err != nil {
			c.log.Warn("topic cache write failed", "topic_ids", topicIDs, "error", err)
		}
		return t, nil
	})

	select {
	case <-ctx.Done():
		c.log.Warn("cms lookup abandoned, using default topic", "topic_ids", topicIDs, "error", ctx.Err())
		return DefaultTopic()
	case res := <-ch:
		if res.Err != nil {
			c.log.Warn("cms lookup failed, using default topic", "topic_ids", topicIDs, "error", res.Err)
			return DefaultTopic()
		}
		t := res.Val.(Topic)
		t.Found = true
		return t
	}
}

func (c *Client) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) fetch(ctx context.Context, topicIDs string) (Topic, error) {
	endpoint := c.baseURL + "/get-prompt?" + url.Values{"topicIds": {topicIDs}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Topic{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Topic{}, fmt.Errorf("failed to call cms: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Topic{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Topic{}, fmt.Errorf("cms returned status %d: %s", resp.StatusCode, string(body))
	}

	var pr promptResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return Topic{}, fmt.Errorf("failed to decode cms response: %w", err)
	}
	if !pr.Success || pr.Data == nil {
		return Topic{}, fmt.Errorf("cms response missing data")
	}

	t := *pr.Data
	if strings.TrimSpace(t.Name) == "" {
		t.Name = domain.DefaultTopicName
	}
	return t, nil
}
