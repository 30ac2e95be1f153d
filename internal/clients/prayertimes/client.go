// Package prayertimes fetches daily prayer times from an Aladhan-compatible
// API, with a redis cache in front. Times for a given day and location never
// change, so cached entries live a full day.
package prayertimes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

const cacheTTL = 24 * time.Hour

// The five daily prayers, in chronological order.
var prayerNames = []string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

type Client struct {
	baseURL string
	http    *http.Client
	cache   *redis.Client
	log     *logger.Logger
}

// New builds a client. cache may be nil, every lookup then hits the API.
func New(baseURL string, cache *redis.Client, baseLog *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		log:     baseLog.With("client", "PrayerTimes"),
	}
}

// Times returns the prayer start times of the day as minutes from midnight.
func (c *Client) Times(ctx context.Context, latitude, longitude float64, day time.Time) ([]int, error) {
	key := fmt.Sprintf("prayertimes:%.4f:%.4f:%s", latitude, longitude, day.Format("2006-01-02"))

	if c.cache != nil {
		raw, err := c.cache.Get(ctx, key).Result()
		if err == nil {
			var cached []int
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			c.log.Warn("prayer cache read failed", "error", err)
		}
	}

	times, err := c.fetch(ctx, latitude, longitude, day)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if raw, jsonErr := json.Marshal(times); jsonErr == nil {
			if err := c.cache.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
				c.log.Warn("prayer cache write failed", "error", err)
			}
		}
	}
	return times, nil
}

type timingsResponse struct {
	Data struct {
		Timings map[string]string `json:"timings"`
	} `json:"data"`
}

func (c *Client) fetch(ctx context.Context, latitude, longitude float64, day time.Time) ([]int, error) {
	url := fmt.Sprintf("%s/v1/timings/%s?latitude=%f&longitude=%f",
		c.baseURL, day.Format("02-01-2006"), latitude, longitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("prayer times api returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed timingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode prayer times: %w", err)
	}

	times := make([]int, 0, len(prayerNames))
	for _, name := range prayerNames {
		clock, ok := parsed.Data.Timings[name]
		if !ok {
			continue
		}
		// Some responses carry a timezone suffix like "05:31 (CET)".
		if len(clock) > 5 {
			clock = clock[:5]
		}
		minutes, err := types.ParseClock(clock)
		if err != nil {
			c.log.Warn("unparseable prayer time", "prayer", name, "value", clock)
			continue
		}
		times = append(times, minutes)
	}
	return times, nil
}
