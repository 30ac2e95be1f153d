package prayertimes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
)

func TestTimesParsesTimings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"timings":{
			"Fajr":"05:31 (CET)","Dhuhr":"12:45","Asr":"15:50",
			"Maghrib":"18:20","Isha":"19:40","Sunrise":"07:02"}}}`))
	}))
	defer srv.Close()

	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(log.Sync)

	c := New(srv.URL, nil, log)
	got, err := c.Times(context.Background(), 48.85, 2.35, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("times: %v", err)
	}
	want := []int{5*60 + 31, 12*60 + 45, 15*60 + 50, 18*60 + 20, 19*60 + 40}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("time %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTimesSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(log.Sync)

	c := New(srv.URL, nil, log)
	if _, err := c.Times(context.Background(), 0, 0, time.Now()); err == nil {
		t.Fatalf("expected error on non-200 response")
	}
}
