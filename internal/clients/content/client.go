// Package content asks the content service for a study resource matching a
// subject and learning phase. Suggestions are best effort; the planner
// schedules sessions without them when the service is unavailable.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		log:     log.With("client", "ContentClient"),
	}
}

func (c *Client) SuggestContent(ctx context.Context, subjectID uuid.UUID, phase string) (*string, error) {
	endpoint := fmt.Sprintf("%s/internal/subjects/%s/content?phase=%s",
		c.baseURL, subjectID, url.QueryEscape(phase))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build content request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content service returned status %d", resp.StatusCode)
	}

	var body struct {
		Ref string `json:"ref"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode content response: %w", err)
	}
	if body.Ref == "" {
		return nil, nil
	}
	return &body.Ref, nil
}
