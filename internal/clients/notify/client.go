// Package notify publishes planner notifications onto a redis channel the
// notification service consumes. Without redis it degrades to logging.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

const channel = "planner:notifications"

type message struct {
	Kind      string     `json:"kind"`
	UserID    uuid.UUID  `json:"user_id"`
	SubjectID *uuid.UUID `json:"subject_id,omitempty"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
}

type Client struct {
	rdb *goredis.Client
	log *logger.Logger
}

func NewClient(rdb *goredis.Client, log *logger.Logger) *Client {
	return &Client{rdb: rdb, log: log.With("client", "NotifyClient")}
}

// ScheduleReminder queues a session reminder for delivery.
func (c *Client) ScheduleReminder(ctx context.Context, session *types.PlannerStudySession) error {
	return c.publish(ctx, message{
		Kind:      "session_reminder",
		UserID:    session.UserID,
		SubjectID: session.SubjectID,
		SessionID: &session.ID,
		StartsAt:  &session.StartsAt,
	})
}

// EmitExcellence announces an excellence achievement for a subject.
func (c *Client) EmitExcellence(ctx context.Context, userID, subjectID uuid.UUID) error {
	return c.publish(ctx, message{
		Kind:      "excellence_achieved",
		UserID:    userID,
		SubjectID: &subjectID,
	})
}

func (c *Client) publish(ctx context.Context, msg message) error {
	if c.rdb == nil {
		c.log.Info("notification (redis disabled)", "kind", msg.Kind, "user_id", msg.UserID)
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
