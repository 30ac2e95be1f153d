// Package academics talks to the academic-profile service. It supplies the
// subjects, academic context, performance averages and target scores the
// planner consumes.
package academics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log.With("client", "AcademicsClient"),
	}
}

func (c *Client) Subjects(ctx context.Context, userID uuid.UUID) ([]types.Subject, error) {
	var subjects []types.Subject
	if err := c.getJSON(ctx, fmt.Sprintf("/internal/users/%s/subjects", userID), &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

func (c *Client) AcademicContext(ctx context.Context, userID uuid.UUID) (types.AcademicContext, error) {
	var academic types.AcademicContext
	if err := c.getJSON(ctx, fmt.Sprintf("/internal/users/%s/academic-context", userID), &academic); err != nil {
		return types.AcademicContext{}, err
	}
	return academic, nil
}

// AverageScores returns per-subject averages on a 0-100 scale. Subjects
// without any recorded result are absent from the map.
func (c *Client) AverageScores(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]float64, error) {
	var averages map[uuid.UUID]float64
	if err := c.getJSON(ctx, fmt.Sprintf("/internal/users/%s/subject-averages", userID), &averages); err != nil {
		return nil, err
	}
	return averages, nil
}

// TargetScores returns the per-subject goal scores the user set, 0-100.
// Subjects without a goal are absent from the map.
func (c *Client) TargetScores(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]float64, error) {
	var targets map[uuid.UUID]float64
	if err := c.getJSON(ctx, fmt.Sprintf("/internal/users/%s/subject-targets", userID), &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build academics request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("academics request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("academics %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode academics response: %w", err)
	}
	return nil
}
