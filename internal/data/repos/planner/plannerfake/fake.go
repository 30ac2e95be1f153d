// Package plannerfake provides in-memory repo implementations for engine
// and service tests that do not need postgres.
package plannerfake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/pkg/dbctx"
	"github.com/memoapp/planner-backend/internal/types"
)

// Store is the shared in-memory state behind all fake repos.
type Store struct {
	mu         sync.Mutex
	Settings   map[uuid.UUID]*types.PlannerSettings
	Priorities map[uuid.UUID]map[uuid.UUID]*types.SubjectPriority
	Schedules  map[uuid.UUID]*types.PlannerSchedule
	Sessions   map[uuid.UUID]*types.PlannerStudySession
	Events     []*types.AdaptationEvent
}

func NewStore() *Store {
	return &Store{
		Settings:   make(map[uuid.UUID]*types.PlannerSettings),
		Priorities: make(map[uuid.UUID]map[uuid.UUID]*types.SubjectPriority),
		Schedules:  make(map[uuid.UUID]*types.PlannerSchedule),
		Sessions:   make(map[uuid.UUID]*types.PlannerStudySession),
	}
}

// TxRunner runs the function directly; the fakes have no transactions.
type TxRunner struct{}

func (TxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Context{Ctx: ctx})
}

// SettingsRepo

type SettingsRepo struct{ S *Store }

func (r SettingsRepo) Upsert(_ context.Context, _ *gorm.DB, settings *types.PlannerSettings) (*types.PlannerSettings, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if settings.ID == uuid.Nil {
		settings.ID = uuid.New()
	}
	r.S.Settings[settings.UserID] = settings
	return settings, nil
}

func (r SettingsRepo) GetByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) (*types.PlannerSettings, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	s, ok := r.S.Settings[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

// PriorityRepo

type PriorityRepo struct{ S *Store }

func (r PriorityRepo) Upsert(_ context.Context, _ *gorm.DB, p *types.SubjectPriority) (*types.SubjectPriority, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if r.S.Priorities[p.UserID] == nil {
		r.S.Priorities[p.UserID] = make(map[uuid.UUID]*types.SubjectPriority)
	}
	r.S.Priorities[p.UserID][p.SubjectID] = p
	return p, nil
}

func (r PriorityRepo) GetByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.SubjectPriority, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	var out []*types.SubjectPriority
	for _, p := range r.S.Priorities[userID] {
		out = append(out, p)
	}
	sortPriorities(out)
	return out, nil
}

func (r PriorityRepo) GetByUserSubject(_ context.Context, _ *gorm.DB, userID, subjectID uuid.UUID) (*types.SubjectPriority, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	p, ok := r.S.Priorities[userID][subjectID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func sortPriorities(rows []*types.SubjectPriority) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalScore != rows[j].TotalScore {
			return rows[i].TotalScore > rows[j].TotalScore
		}
		return rows[i].SubjectID.String() < rows[j].SubjectID.String()
	})
}

// ScheduleRepo

type ScheduleRepo struct{ S *Store }

func (r ScheduleRepo) Create(_ context.Context, _ *gorm.DB, sch *types.PlannerSchedule) (*types.PlannerSchedule, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if sch.ID == uuid.Nil {
		sch.ID = uuid.New()
	}
	for i := range sch.Sessions {
		if sch.Sessions[i].ID == uuid.Nil {
			sch.Sessions[i].ID = uuid.New()
		}
		sch.Sessions[i].ScheduleID = sch.ID
		copied := sch.Sessions[i]
		r.S.Sessions[copied.ID] = &copied
	}
	r.S.Schedules[sch.ID] = sch
	return sch, nil
}

func (r ScheduleRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.PlannerSchedule, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	sch, ok := r.S.Schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return sch, nil
}

func (r ScheduleRepo) GetByIDWithSessions(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PlannerSchedule, error) {
	sch, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	sch.Sessions = nil
	for _, sess := range r.S.Sessions {
		if sess.ScheduleID == id {
			sch.Sessions = append(sch.Sessions, *sess)
		}
	}
	return sch, nil
}

func (r ScheduleRepo) GetActiveByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) (*types.PlannerSchedule, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for _, sch := range r.S.Schedules {
		if sch.UserID == userID && sch.Status == types.ScheduleStatusActive {
			return sch, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r ScheduleRepo) ListByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.PlannerSchedule, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	var out []*types.PlannerSchedule
	for _, sch := range r.S.Schedules {
		if sch.UserID == userID {
			out = append(out, sch)
		}
	}
	return out, nil
}

func (r ScheduleRepo) DeactivateActiveForUser(_ context.Context, _ *gorm.DB, userID uuid.UUID, exceptID uuid.UUID) (int64, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	var n int64
	for _, sch := range r.S.Schedules {
		if sch.UserID == userID && sch.Status == types.ScheduleStatusActive && sch.ID != exceptID {
			sch.Status = types.ScheduleStatusInactive
			n++
		}
	}
	return n, nil
}

func (r ScheduleRepo) SoftDelete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	delete(r.S.Schedules, id)
	return nil
}

// SessionRepo

type SessionRepo struct{ S *Store }

func (r SessionRepo) CreateBatch(_ context.Context, _ *gorm.DB, sessions []*types.PlannerStudySession) ([]*types.PlannerStudySession, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for _, sess := range sessions {
		if sess.ID == uuid.Nil {
			sess.ID = uuid.New()
		}
		r.S.Sessions[sess.ID] = sess
	}
	return sessions, nil
}

func (r SessionRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.PlannerStudySession, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	sess, ok := r.S.Sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return sess, nil
}

func (r SessionRepo) ListByScheduleID(_ context.Context, _ *gorm.DB, scheduleID uuid.UUID) ([]*types.PlannerStudySession, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	var out []*types.PlannerStudySession
	for _, sess := range r.S.Sessions {
		if sess.ScheduleID == scheduleID {
			out = append(out, sess)
		}
	}
	sortSessions(out)
	return out, nil
}

func (r SessionRepo) ListScheduledInRange(_ context.Context, _ *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.PlannerStudySession, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	var out []*types.PlannerStudySession
	for _, sess := range r.S.Sessions {
		if sess.UserID == userID && sess.Status == types.SessionStatusScheduled &&
			sess.StartsAt.Before(to) && sess.EndsAt.After(from) {
			out = append(out, sess)
		}
	}
	sortSessions(out)
	return out, nil
}

func (r SessionRepo) ListMissedSince(_ context.Context, _ *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.PlannerStudySession, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	var out []*types.PlannerStudySession
	for _, sess := range r.S.Sessions {
		if sess.UserID == userID && sess.Status == types.SessionStatusMissed && !sess.EndsAt.Before(since) {
			out = append(out, sess)
		}
	}
	sortSessions(out)
	return out, nil
}

func (r SessionRepo) Update(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]any) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	sess, ok := r.S.Sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applySessionUpdates(sess, updates)
	return nil
}

func (r SessionRepo) LastCompletedBySubject(_ context.Context, _ *gorm.DB, userID uuid.UUID) (map[uuid.UUID]time.Time, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	out := make(map[uuid.UUID]time.Time)
	for _, sess := range r.S.Sessions {
		if sess.UserID != userID || sess.Status != types.SessionStatusCompleted || sess.SubjectID == nil {
			continue
		}
		if sess.EndsAt.After(out[*sess.SubjectID]) {
			out[*sess.SubjectID] = sess.EndsAt
		}
	}
	return out, nil
}

func (r SessionRepo) MarkOverdueMissed(_ context.Context, _ *gorm.DB, userID uuid.UUID, cutoff time.Time) (int64, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	var n int64
	for _, sess := range r.S.Sessions {
		if sess.UserID == userID && sess.Status == types.SessionStatusScheduled &&
			sess.EndsAt.Before(cutoff) && sess.Kind != types.SessionKindBreak {
			sess.Status = types.SessionStatusMissed
			n++
		}
	}
	return n, nil
}

func applySessionUpdates(sess *types.PlannerStudySession, updates map[string]any) {
	for key, val := range updates {
		switch key {
		case "status":
			if s, ok := val.(string); ok {
				sess.Status = s
			}
		case "completion_percent":
			if v, ok := val.(int); ok {
				sess.CompletionPercent = &v
			}
		case "mood":
			if v, ok := val.(string); ok {
				sess.Mood = &v
			}
		case "score":
			if v, ok := val.(float64); ok {
				sess.Score = &v
			}
		case "notes":
			if v, ok := val.(string); ok {
				sess.Notes = &v
			}
		case "skip_reason":
			if v, ok := val.(string); ok {
				sess.SkipReason = &v
			}
		}
	}
}

func sortSessions(sessions []*types.PlannerStudySession) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartsAt.Before(sessions[j].StartsAt)
	})
}

// AdaptationEventRepo

type AdaptationEventRepo struct{ S *Store }

func (r AdaptationEventRepo) Create(_ context.Context, _ *gorm.DB, event *types.AdaptationEvent) (*types.AdaptationEvent, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	r.S.Events = append(r.S.Events, event)
	return event, nil
}

func (r AdaptationEventRepo) ListByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID, limit int) ([]*types.AdaptationEvent, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	var out []*types.AdaptationEvent
	for i := len(r.S.Events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.S.Events[i].UserID == userID {
			out = append(out, r.S.Events[i])
		}
	}
	return out, nil
}

// StatusGuard mimics the compare-and-set guard over the in-memory store.
// Only the schedules table is supported.
type StatusGuard struct{ S *Store }

func (g StatusGuard) UpdateByStatus(_ dbctx.Context, table string, id uuid.UUID, allowedStatuses []string, updates map[string]any) (bool, error) {
	if table != (types.PlannerSchedule{}).TableName() {
		return false, nil
	}
	g.S.mu.Lock()
	defer g.S.mu.Unlock()
	sch, ok := g.S.Schedules[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range allowedStatuses {
		if sch.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	if status, ok := updates["status"].(string); ok {
		sch.Status = status
	}
	return true, nil
}
