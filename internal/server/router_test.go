package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/memoapp/planner-backend/internal/data/repos/planner/plannerfake"
	"github.com/memoapp/planner-backend/internal/handlers"
	"github.com/memoapp/planner-backend/internal/middleware"
	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/planner/adaptation"
	"github.com/memoapp/planner-backend/internal/planner/availability"
	"github.com/memoapp/planner-backend/internal/planner/lifecycle"
	"github.com/memoapp/planner-backend/internal/planner/priority"
	"github.com/memoapp/planner-backend/internal/services"
	"github.com/memoapp/planner-backend/internal/types"
)

type stubProfile struct {
	subjects []types.Subject
}

func (s stubProfile) Subjects(_ context.Context, _ uuid.UUID) ([]types.Subject, error) {
	return s.subjects, nil
}

func (s stubProfile) AcademicContext(_ context.Context, _ uuid.UUID) (types.AcademicContext, error) {
	return types.AcademicContext{}, nil
}

func (s stubProfile) AverageScores(_ context.Context, _ uuid.UUID) (map[uuid.UUID]float64, error) {
	return nil, nil
}

func (s stubProfile) TargetScores(_ context.Context, _ uuid.UUID) (map[uuid.UUID]float64, error) {
	return nil, nil
}

type stubContent struct{}

func (stubContent) SuggestContent(_ context.Context, _ uuid.UUID, _ string) (*string, error) {
	return nil, nil
}

type stubNotify struct{}

func (stubNotify) ScheduleReminder(_ context.Context, _ *types.PlannerStudySession) error { return nil }
func (stubNotify) EmitExcellence(_ context.Context, _, _ uuid.UUID) error                 { return nil }

type stubPrayer struct{}

func (stubPrayer) Times(_ context.Context, _, _ float64, _ time.Time) ([]int, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *plannerfake.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(log.Sync)

	store := plannerfake.NewStore()
	settingsRepo := plannerfake.SettingsRepo{S: store}
	priorityRepo := plannerfake.PriorityRepo{S: store}
	scheduleRepo := plannerfake.ScheduleRepo{S: store}
	sessionRepo := plannerfake.SessionRepo{S: store}
	eventRepo := plannerfake.AdaptationEventRepo{S: store}

	profile := stubProfile{subjects: []types.Subject{
		{ID: uuid.New(), Name: "Mathematics", Coefficient: 7, Difficulty: 6},
		{ID: uuid.New(), Name: "History", Coefficient: 3, Difficulty: 4},
	}}
	prioritySvc := priority.NewService(profile, profile, priorityRepo, sessionRepo, log)
	availabilityModel := availability.NewModel(stubPrayer{}, log)
	engine := adaptation.NewEngine(settingsRepo, scheduleRepo, sessionRepo, priorityRepo, eventRepo,
		plannerfake.TxRunner{}, prioritySvc, log)
	manager := lifecycle.NewManager(scheduleRepo, sessionRepo,
		plannerfake.TxRunner{}, plannerfake.StatusGuard{S: store}, log)
	plannerSvc := services.NewPlannerService(settingsRepo, priorityRepo, eventRepo,
		prioritySvc, availabilityModel, engine, manager,
		profile, stubContent{}, stubNotify{}, log)

	router := NewRouter(RouterConfig{
		Log:            log,
		PlannerHandler: handlers.NewPlannerHandler(log, plannerSvc),
		Identity:       middleware.NewIdentityMiddleware(log),
	})
	return router, store
}

func doRequest(router *gin.Engine, method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("X-User-ID", userID.String())
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedRouterSettings(store *plannerfake.Store, userID uuid.UUID) {
	store.Settings[userID] = &types.PlannerSettings{
		UserID:               userID,
		StudyStartTime:       "16:00",
		StudyEndTime:         "22:00",
		SleepStartTime:       "23:00",
		SleepEndTime:         "07:00",
		MorningEnergyLevel:   7,
		AfternoonEnergyLevel: 6,
		EveningEnergyLevel:   8,
		NightEnergyLevel:     4,
		CoefficientWeight:    35,
		ExamProximityWeight:  25,
		DifficultyWeight:     15,
		InactivityWeight:     10,
		PerformanceGapWeight: 5,
		MaxCoef7PerDay:       1,
		MaxHardPerDay:        2,
		MaxStudyHoursPerDay:  8,
		MaxPerSubjectPerDay:  2,
		MockDayOfWeek:        "saturday",
		MockDurationMinutes:  100,
	}
}

func TestHealthzIsPublic(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doRequest(router, http.MethodGet, "/healthz", uuid.Nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status %d", w.Code)
	}
}

func TestAPIRequiresIdentity(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/planner/schedules/active", uuid.Nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without X-User-ID, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/planner/schedules/active", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed X-User-ID, got %d", rec.Code)
	}
}

func TestGenerateActivateFlow(t *testing.T) {
	router, store := newTestRouter(t)
	userID := uuid.New()
	seedRouterSettings(store, userID)

	w := doRequest(router, http.MethodPost, "/api/planner/schedules/generate", userID, map[string]string{
		"start_date": "2026-03-02",
		"end_date":   "2026-03-04",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("generate status %d: %s", w.Code, w.Body.String())
	}
	var schedule types.PlannerSchedule
	if err := json.Unmarshal(w.Body.Bytes(), &schedule); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	if schedule.Status != types.ScheduleStatusDraft {
		t.Fatalf("expected draft schedule, got %s", schedule.Status)
	}
	if len(schedule.Sessions) == 0 {
		t.Fatalf("expected sessions in the generated schedule")
	}

	w = doRequest(router, http.MethodPost,
		fmt.Sprintf("/api/planner/schedules/%s/activate", schedule.ID), userID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activate status %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/api/planner/schedules/active", userID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get active status %d", w.Code)
	}
	var active types.PlannerSchedule
	if err := json.Unmarshal(w.Body.Bytes(), &active); err != nil {
		t.Fatalf("decode active: %v", err)
	}
	if active.ID != schedule.ID {
		t.Fatalf("active schedule mismatch")
	}

	// Activating a foreign user's schedule is indistinguishable from a
	// missing one.
	w = doRequest(router, http.MethodPost,
		fmt.Sprintf("/api/planner/schedules/%s/activate", schedule.ID), uuid.New(), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign schedule, got %d", w.Code)
	}
}

func TestUpdateSettingsRejectsBadPayload(t *testing.T) {
	router, _ := newTestRouter(t)
	userID := uuid.New()

	w := doRequest(router, http.MethodPut, "/api/planner/settings", userID, map[string]any{
		"study_start_time":        "22:00",
		"study_end_time":          "16:00",
		"sleep_start_time":        "23:00",
		"sleep_end_time":          "07:00",
		"morning_energy_level":    7,
		"afternoon_energy_level":  6,
		"evening_energy_level":    8,
		"night_energy_level":      4,
		"coefficient_weight":      35,
		"max_study_hours_per_day": 8,
		"mock_day_of_week":        "saturday",
		"mock_duration_minutes":   100,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted study window, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSessionStatusEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	userID := uuid.New()
	seedRouterSettings(store, userID)

	sch := &types.PlannerSchedule{ID: uuid.New(), UserID: userID, Status: types.ScheduleStatusActive}
	store.Schedules[sch.ID] = sch
	subjectID := uuid.New()
	sess := &types.PlannerStudySession{
		ID:         uuid.New(),
		ScheduleID: sch.ID,
		UserID:     userID,
		SubjectID:  &subjectID,
		Kind:       types.SessionKindStudy,
		Status:     types.SessionStatusScheduled,
		StartsAt:   time.Now().UTC(),
		EndsAt:     time.Now().UTC().Add(time.Hour),
	}
	store.Sessions[sess.ID] = sess

	w := doRequest(router, http.MethodPost,
		fmt.Sprintf("/api/planner/sessions/%s/status", sess.ID), userID, map[string]any{
			"status": types.SessionStatusInProgress,
		})
	if w.Code != http.StatusOK {
		t.Fatalf("transition status %d: %s", w.Code, w.Body.String())
	}

	// Illegal transition surfaces as a conflict.
	w = doRequest(router, http.MethodPost,
		fmt.Sprintf("/api/planner/sessions/%s/status", sess.ID), userID, map[string]any{
			"status": types.SessionStatusScheduled,
		})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for illegal transition, got %d", w.Code)
	}
}

func TestExamResultEndpointValidatesScore(t *testing.T) {
	router, store := newTestRouter(t)
	userID := uuid.New()
	seedRouterSettings(store, userID)

	w := doRequest(router, http.MethodPost,
		fmt.Sprintf("/api/planner/exams/%s/result", uuid.New()), userID, map[string]any{
			"score": 140,
		})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range score, got %d", w.Code)
	}

	w = doRequest(router, http.MethodPost,
		fmt.Sprintf("/api/planner/exams/%s/result", uuid.New()), userID, map[string]any{
			"score": 55,
		})
	if w.Code != http.StatusOK {
		t.Fatalf("exam result status %d: %s", w.Code, w.Body.String())
	}
	var outcome adaptation.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.PriorityDelta != 30 {
		t.Fatalf("expected +30 delta for a weak exam, got %f", outcome.PriorityDelta)
	}
}
